package emotion

import (
	"context"
	"fmt"
	"strings"
	"time"

	vision "cloud.google.com/go/vision/v2/apiv1"
	visionpb "cloud.google.com/go/vision/v2/apiv1/visionpb"
	"google.golang.org/api/option"
)

const maxFaces = 5

type detectFacesFunc func(ctx context.Context, img *visionpb.Image, maxResults int) ([]*visionpb.FaceAnnotation, error)

// VisionClassifier 基于 Cloud Vision 人脸检测的情绪识别
type VisionClassifier struct {
	detect  detectFacesFunc
	close   func() error
	timeout time.Duration
}

func NewVisionClassifier(ctx context.Context, cfg Config) (*VisionClassifier, error) {
	client, err := vision.NewImageAnnotatorClient(ctx, clientOptions(cfg.Credentials)...)
	if err != nil {
		return nil, fmt.Errorf("vision client: %w", err)
	}
	return &VisionClassifier{
		detect: func(ctx context.Context, img *visionpb.Image, maxResults int) ([]*visionpb.FaceAnnotation, error) {
			resp, err := client.BatchAnnotateImages(ctx, faceRequest(img, maxResults))
			if err != nil {
				return nil, fmt.Errorf("vision BatchAnnotateImages: %w", err)
			}
			return facesFromResponse(resp)
		},
		close:   client.Close,
		timeout: cfg.VisionTimeout,
	}, nil
}

func faceRequest(img *visionpb.Image, maxResults int) *visionpb.BatchAnnotateImagesRequest {
	req := &visionpb.AnnotateImageRequest{
		Image: img,
		Features: []*visionpb.Feature{
			{Type: visionpb.Feature_FACE_DETECTION, MaxResults: int32(maxResults)},
		},
	}
	return &visionpb.BatchAnnotateImagesRequest{Requests: []*visionpb.AnnotateImageRequest{req}}
}

// facesFromResponse 单图请求只看第一个响应，响应内的错误原样返回
func facesFromResponse(resp *visionpb.BatchAnnotateImagesResponse) ([]*visionpb.FaceAnnotation, error) {
	if resp == nil || len(resp.GetResponses()) == 0 || resp.GetResponses()[0] == nil {
		return nil, nil
	}
	r0 := resp.GetResponses()[0]
	if e := r0.GetError(); e != nil && (e.GetCode() != 0 || e.GetMessage() != "") {
		return nil, fmt.Errorf("vision annotate: code=%d %s", e.GetCode(), e.GetMessage())
	}
	return r0.GetFaceAnnotations(), nil
}

func clientOptions(creds string) []option.ClientOption {
	creds = strings.TrimSpace(creds)
	if creds == "" {
		return nil
	}
	if strings.HasPrefix(creds, "{") {
		return []option.ClientOption{option.WithCredentialsJSON([]byte(creds))}
	}
	return []option.ClientOption{option.WithCredentialsFile(creds)}
}

func (v *VisionClassifier) Name() string { return BackendVision }

func (v *VisionClassifier) Classify(ctx context.Context, frame *Frame) (Label, error) {
	if v.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, v.timeout)
		defer cancel()
	}
	faces, err := v.detect(ctx, &visionpb.Image{Content: frame.JPEG}, maxFaces)
	if err != nil {
		return "", fmt.Errorf("vision detect faces: %w", err)
	}
	return labelFromFaces(faces)
}

func (v *VisionClassifier) Close() error {
	if v.close == nil {
		return nil
	}
	return v.close()
}

// labelFromFaces 取检测置信度最高的人脸，似然度至少为 POSSIBLE 的最高项胜出，否则 neutral
func labelFromFaces(faces []*visionpb.FaceAnnotation) (Label, error) {
	if len(faces) == 0 {
		return "", ErrNoFace
	}
	face := faces[0]
	for _, f := range faces[1:] {
		if f.GetDetectionConfidence() > face.GetDetectionConfidence() {
			face = f
		}
	}

	candidates := []struct {
		label      Label
		likelihood visionpb.Likelihood
	}{
		{Happy, face.GetJoyLikelihood()},
		{Sad, face.GetSorrowLikelihood()},
		{Angry, face.GetAngerLikelihood()},
		{Surprise, face.GetSurpriseLikelihood()},
	}
	best, bestLikelihood := Neutral, visionpb.Likelihood_UNLIKELY
	for _, c := range candidates {
		if c.likelihood > bestLikelihood {
			best, bestLikelihood = c.label, c.likelihood
		}
	}
	return best, nil
}

package emotion

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"emochat-backend/internal/logger"
	"emochat-backend/internal/metrics"
)

var (
	ErrNoFace         = errors.New("no face detected")
	ErrUnknownBackend = errors.New("unknown emotion backend")
)

// Classifier 情绪识别后端，允许失败
type Classifier interface {
	Classify(ctx context.Context, frame *Frame) (Label, error)
	Name() string
}

// Detection 识别结果。Fallback 为 true 表示使用了 neutral 兜底，Err 为原始错误
type Detection struct {
	Emotion  Label
	Fallback bool
	Err      error
}

// Detector 对外的识别入口，不会返回错误
type Detector struct {
	classifier Classifier
	log        *logger.Logger
	metrics    *metrics.Metrics
}

func NewDetector(c Classifier, log *logger.Logger, m *metrics.Metrics) *Detector {
	return &Detector{
		classifier: c,
		log:        log.With("component", "emotion", "backend", c.Name()),
		metrics:    m,
	}
}

func (d *Detector) Backend() string { return d.classifier.Name() }

// Detect 识别主导情绪。后端报错、未检测到人脸、返回未知标签均降级为 neutral
func (d *Detector) Detect(ctx context.Context, frame *Frame) (det Detection) {
	ctx, span := otel.Tracer("emochat/emotion").Start(ctx, "emotion.detect")
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			det = Detection{Emotion: Neutral, Fallback: true, Err: fmt.Errorf("classifier panic: %v", r)}
		}
		span.SetAttributes(
			attribute.String("emotion.backend", d.classifier.Name()),
			attribute.String("emotion.label", det.Emotion.String()),
			attribute.Bool("emotion.fallback", det.Fallback),
		)
		if det.Err != nil {
			span.SetStatus(codes.Error, det.Err.Error())
			d.log.Warn("Emotion detection fell back to neutral", "error", det.Err)
		}
		d.metrics.RecordClassification(d.classifier.Name(), det.Emotion.String(), det.Fallback)
	}()

	label, err := d.classifier.Classify(ctx, frame)
	if err != nil {
		return Detection{Emotion: Neutral, Fallback: true, Err: err}
	}
	label = Parse(label.String())
	if !label.IsKnown() {
		return Detection{Emotion: Neutral, Fallback: true, Err: fmt.Errorf("unknown label %q", label)}
	}
	return Detection{Emotion: label}
}

// StaticClassifier 固定返回同一个标签，用于离线开发
type StaticClassifier struct {
	Label Label
}

func (s StaticClassifier) Classify(context.Context, *Frame) (Label, error) {
	if s.Label == "" {
		return Neutral, nil
	}
	return s.Label, nil
}

func (StaticClassifier) Name() string { return BackendNeutral }

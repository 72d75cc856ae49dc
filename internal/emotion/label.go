package emotion

import "strings"

// Label 情绪标签，取值与人脸情绪模型的输出一致
type Label string

const (
	Neutral  Label = "neutral"
	Happy    Label = "happy"
	Sad      Label = "sad"
	Angry    Label = "angry"
	Surprise Label = "surprise"
	Fear     Label = "fear"
	Disgust  Label = "disgust"
)

// Known 已知标签，顺序即展示顺序
var Known = []Label{Happy, Sad, Angry, Surprise, Fear, Disgust, Neutral}

// 模型常见的名词/形容词形式
var synonyms = map[string]Label{
	"happiness": Happy,
	"joy":       Happy,
	"sadness":   Sad,
	"sorrow":    Sad,
	"anger":     Angry,
	"surprised": Surprise,
	"fearful":   Fear,
	"scared":    Fear,
	"disgusted": Disgust,
	"calm":      Neutral,
}

// Parse 规范化为小写，空值视为 neutral。未知标签原样保留
func Parse(raw string) Label {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return Neutral
	}
	return Label(s)
}

func (l Label) IsKnown() bool {
	for _, k := range Known {
		if l == k {
			return true
		}
	}
	return false
}

func (l Label) String() string { return string(l) }

// FindLabel 在自由文本中找第一个可识别的情绪词
func FindLabel(text string) (Label, bool) {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return r < 'a' || r > 'z'
	})
	for _, w := range words {
		if l := Label(w); l.IsKnown() {
			return l, true
		}
		if l, ok := synonyms[w]; ok {
			return l, true
		}
	}
	return "", false
}

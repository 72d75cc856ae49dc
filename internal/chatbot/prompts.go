package chatbot

import "emochat-backend/internal/emotion"

// Apology 生成失败时的兜底回复
const Apology = "Sorry, I'm having trouble responding right now. Let's try again!"

// 按情绪选择的人设前缀，直接拼在用户输入前面
var emotionPrompts = map[emotion.Label]string{
	emotion.Happy:    "You are a cheerful chatbot. The user is happy. Respond with enthusiasm: ",
	emotion.Sad:      "You are a supportive chatbot. The user is sad. Respond empathetically: ",
	emotion.Angry:    "You are a calming chatbot. The user is angry. Respond soothingly: ",
	emotion.Surprise: "You are a curious chatbot. The user is surprised. Respond with interest: ",
	emotion.Fear:     "You are a reassuring chatbot. The user is afraid. Respond gently and calmly: ",
	emotion.Disgust:  "You are an understanding chatbot. The user is disgusted. Respond without judgement: ",
	emotion.Neutral:  "You are a friendly chatbot. Respond naturally: ",
}

// 每种情绪两条固定的追问
var followUps = map[emotion.Label][]string{
	emotion.Happy: {
		"That's wonderful! What made your day so great?",
		"I love seeing you this happy! Want to share the good news?",
	},
	emotion.Sad: {
		"I'm here for you. Do you want to talk about what's bothering you?",
		"It's okay to feel down sometimes. What's on your mind?",
	},
	emotion.Angry: {
		"Let's take a deep breath together. What happened?",
		"I can tell something upset you. Want to tell me about it?",
	},
	emotion.Surprise: {
		"Whoa, something caught you off guard! What was it?",
		"That looks like a big surprise. Tell me more!",
	},
	emotion.Fear: {
		"You're safe here. What's worrying you?",
		"It sounds scary. Would talking it through help?",
	},
	emotion.Disgust: {
		"Something really didn't sit right with you. What was it?",
		"That reaction says a lot! Want to vent about it?",
	},
	emotion.Neutral: {
		"How's your day going so far?",
		"Anything on your mind you'd like to chat about?",
	},
}

// PromptPrefix 未知情绪使用 neutral 前缀
func PromptPrefix(label emotion.Label) string {
	if p, ok := emotionPrompts[label]; ok {
		return p
	}
	return emotionPrompts[emotion.Neutral]
}

// FollowUps 未知情绪使用 neutral 追问
func FollowUps(label emotion.Label) []string {
	if f, ok := followUps[label]; ok {
		return f
	}
	return followUps[emotion.Neutral]
}

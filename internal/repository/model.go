package repository

type SessionStatus string

const (
	SessionStatusRunning   SessionStatus = "running"
	SessionStatusCompleted SessionStatus = "completed"
)

type Utterance struct {
	Start    float64
	End      float64
	Text     string
	Language string
}

type SentimentRecord struct {
	Sentiment string
	Emotion   string
	Start     float64
	End       float64
	Text      string
}

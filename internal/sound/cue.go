package sound

// Cue 音效名，对应音效目录下同名的 .wav/.mp3 文件
type Cue string

const (
	CueCorrect  Cue = "correct"
	CueWrong    Cue = "wrong"
	CueQuestion Cue = "question"
	CueGameOver Cue = "gameover"
)

// Valid 是否为已知音效
func (c Cue) Valid() bool {
	switch c {
	case CueCorrect, CueWrong, CueQuestion, CueGameOver:
		return true
	}
	return false
}

// ForResult 作答结果对应的音效
func ForResult(correct bool) Cue {
	if correct {
		return CueCorrect
	}
	return CueWrong
}

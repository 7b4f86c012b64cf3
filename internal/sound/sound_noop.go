//go:build ci

package sound

// DefaultDir 默认音效目录
const DefaultDir = "assets/sounds"

type SoundManager struct{}

func NewSoundManager(string) *SoundManager {
	return &SoundManager{}
}

func (sm *SoundManager) Init() error {
	return nil
}

func (sm *SoundManager) Loaded() int { return 0 }

func (sm *SoundManager) Has(Cue) bool { return false }

func (sm *SoundManager) Play(Cue) {
	// No-op
}

func (sm *SoundManager) Close() {
	// No-op
}

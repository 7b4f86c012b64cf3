//go:build !ci

package sound

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/speaker"
	"github.com/gopxl/beep/v2/wav"
)

// DefaultDir 默认音效目录
const DefaultDir = "assets/sounds"

type SoundManager struct {
	dir     string
	mu      sync.RWMutex
	buffers map[Cue]*beep.Buffer
	enabled bool
}

// NewSoundManager 创建音效管理器，dir 为空时使用 DefaultDir
func NewSoundManager(dir string) *SoundManager {
	if dir == "" {
		dir = DefaultDir
	}
	return &SoundManager{
		dir:     dir,
		buffers: make(map[Cue]*beep.Buffer),
	}
}

func (sm *SoundManager) Init() error {
	sampleRate := beep.SampleRate(44100)

	// 没有音效文件时不占用音频设备
	if err := sm.loadSoundFiles(sampleRate); err != nil {
		return err
	}
	if sm.Loaded() == 0 {
		return nil
	}

	// Init speaker with smaller buffer for lower latency
	if err := speaker.Init(sampleRate, sampleRate.N(time.Second/10)); err != nil {
		return fmt.Errorf("failed to initialize speaker: %w", err)
	}

	sm.mu.Lock()
	sm.enabled = true
	sm.mu.Unlock()
	return nil
}

// loadSoundFiles loads the cue files (correct.wav, question.mp3 ...) from the sound directory
func (sm *SoundManager) loadSoundFiles(sampleRate beep.SampleRate) error {
	files, err := os.ReadDir(sm.dir)
	if err != nil {
		// It's okay if directory doesn't exist, just no sounds
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read sound directory: %w", err)
	}

	for _, file := range files {
		if file.IsDir() {
			continue
		}
		name := file.Name()
		ext := strings.ToLower(filepath.Ext(name))
		cue := Cue(strings.TrimSuffix(name, filepath.Ext(name)))

		if ext != ".mp3" && ext != ".wav" {
			continue
		}
		if !cue.Valid() {
			continue
		}

		// Continue loading other files even if one fails
		_ = sm.loadSoundFile(filepath.Join(sm.dir, name), cue, ext, sampleRate)
	}

	return nil
}

// loadSoundFile loads a single sound file into the buffer
func (sm *SoundManager) loadSoundFile(path string, cue Cue, ext string, sampleRate beep.SampleRate) error {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	var streamer beep.StreamSeekCloser
	var format beep.Format

	switch ext {
	case ".mp3":
		streamer, format, err = mp3.Decode(f)
	case ".wav":
		streamer, format, err = wav.Decode(f)
	}

	if err != nil {
		return err
	}
	defer func() { _ = streamer.Close() }()

	// Resample if necessary
	var resampled beep.Streamer = streamer
	if format.SampleRate != sampleRate {
		resampled = beep.Resample(4, format.SampleRate, sampleRate, streamer)
	}

	// Use standard stereo format
	standardFormat := beep.Format{
		SampleRate:  sampleRate,
		NumChannels: 2,
		Precision:   4,
	}

	buffer := beep.NewBuffer(standardFormat)
	buffer.Append(resampled)

	sm.mu.Lock()
	sm.buffers[cue] = buffer
	sm.mu.Unlock()
	return nil
}

// Loaded 已加载的音效数量
func (sm *SoundManager) Loaded() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.buffers)
}

// Has 是否加载了某个音效
func (sm *SoundManager) Has(cue Cue) bool {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	_, ok := sm.buffers[cue]
	return ok
}

func (sm *SoundManager) Play(cue Cue) {
	sm.mu.RLock()
	buffer, ok := sm.buffers[cue]
	enabled := sm.enabled
	sm.mu.RUnlock()

	// Silent failure if sound not found
	if !enabled || !ok {
		return
	}

	speaker.Play(buffer.Streamer(0, buffer.Len()))
}

func (sm *SoundManager) Close() {
	sm.mu.Lock()
	sm.enabled = false
	sm.mu.Unlock()
}

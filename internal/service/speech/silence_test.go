package speech

import (
	"encoding/binary"
	"testing"
	"time"
)

// pcm 生成 ms 毫秒、幅度恒定的 16kHz PCM16LE 音频
func pcm(ms int, amplitude int16) []byte {
	samples := pcmSampleRate * ms / 1000
	buf := make([]byte, samples*2)
	for i := 0; i < samples; i++ {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(amplitude))
	}
	return buf
}

func TestSilenceDetectorNeedsSpeechFirst(t *testing.T) {
	d := NewSilenceDetector(300 * time.Millisecond)
	for i := 0; i < 10; i++ {
		if d.Observe(pcm(100, 0)) {
			t.Fatal("silence before any speech must not end capture")
		}
	}
}

func TestSilenceDetectorEndsAfterWindow(t *testing.T) {
	d := NewSilenceDetector(300 * time.Millisecond)
	if d.Observe(pcm(200, 4000)) {
		t.Fatal("speech must not end capture")
	}
	if d.Observe(pcm(100, 0)) || d.Observe(pcm(100, 0)) {
		t.Fatal("ended before the silence window elapsed")
	}
	if !d.Observe(pcm(100, 0)) {
		t.Fatal("expected end after 300ms of silence")
	}
}

func TestSilenceDetectorSpeechResetsQuiet(t *testing.T) {
	d := NewSilenceDetector(200 * time.Millisecond)
	d.Observe(pcm(100, 4000))
	d.Observe(pcm(100, 0))
	d.Observe(pcm(100, 4000))
	if d.Observe(pcm(100, 0)) {
		t.Fatal("quiet time should restart after speech")
	}
	if !d.Observe(pcm(100, 0)) {
		t.Fatal("expected end after renewed silence")
	}
}

func TestSilenceDetectorDisabled(t *testing.T) {
	d := NewSilenceDetector(0)
	d.Observe(pcm(100, 4000))
	if d.Observe(pcm(5000, 0)) {
		t.Fatal("zero window must disable detection")
	}
}

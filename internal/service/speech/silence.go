package speech

import (
	"encoding/binary"
	"math"
	"time"
)

const (
	pcmSampleRate = 16000
	// 16 位 PCM 的 RMS 阈值，低于此值视为静音
	defaultSilenceThreshold = 500.0
)

// SilenceDetector 基于 RMS 的端点检测：先听到语音，再持续静音 window 时长即判定说完。
type SilenceDetector struct {
	window    time.Duration
	threshold float64
	heard     bool
	quiet     time.Duration
}

// NewSilenceDetector window <= 0 时不做端点检测
func NewSilenceDetector(window time.Duration) *SilenceDetector {
	return &SilenceDetector{window: window, threshold: defaultSilenceThreshold}
}

// Observe 输入一段 16kHz 单声道 PCM16LE 音频，返回是否应结束录音
func (d *SilenceDetector) Observe(chunk []byte) bool {
	if d.window <= 0 {
		return false
	}

	samples := len(chunk) / 2
	if samples == 0 {
		return false
	}
	duration := time.Duration(samples) * time.Second / pcmSampleRate

	if rms(chunk) >= d.threshold {
		d.heard = true
		d.quiet = 0
		return false
	}

	if !d.heard {
		return false
	}
	d.quiet += duration
	return d.quiet >= d.window
}

func rms(chunk []byte) float64 {
	samples := len(chunk) / 2
	if samples == 0 {
		return 0
	}
	var sum float64
	for i := 0; i+1 < len(chunk); i += 2 {
		v := float64(int16(binary.LittleEndian.Uint16(chunk[i:])))
		sum += v * v
	}
	return math.Sqrt(sum / float64(samples))
}

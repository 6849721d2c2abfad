package audio

import "github.com/richardsimms/SpeasyTTS/internal/models"

// SampleRate represents audio sample rate in Hz
type SampleRate int

// Sample rates for audio processing.
const (
	// SampleRate22050 is the low rate some speech engines emit
	SampleRate22050 SampleRate = 22050
	// SampleRate44100 represents CD-quality audio at 44.1 kHz
	SampleRate44100 SampleRate = 44100
	// SampleRate48000 represents professional audio at 48 kHz
	SampleRate48000 SampleRate = 48000
)

// DefaultRepairBitrate is the normalized bitrate in kbps forced on repair.
const DefaultRepairBitrate = 128

// Codec represents the audio encoder used on re-encode.
type Codec string

// Audio encoders.
const (
	// CodecMP3 is the LAME MPEG layer III encoder
	CodecMP3 Codec = "libmp3lame"
	// CodecAAC is FFmpeg's native AAC encoder
	CodecAAC Codec = "aac"
)

// Container extensions the pipeline produces.
const (
	FormatMP3 = "mp3"
	FormatM4A = "m4a"
	FormatAAC = "aac"
)

// CodecForFormat returns the encoder that keeps a file in its own container.
func CodecForFormat(format string) Codec {
	switch models.NormalizeFormat(format) {
	case FormatM4A, FormatAAC:
		return CodecAAC
	default:
		return CodecMP3
	}
}

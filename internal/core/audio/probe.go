package audio

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
	"github.com/mewkiz/flac"
)

// ErrUnsupportedFormat is returned by Probe for files it cannot decode
var ErrUnsupportedFormat = errors.New("unsupported audio format")

// ErrEmptyAudio is returned when a file decodes to zero samples
var ErrEmptyAudio = errors.New("audio contains no samples")

// Info describes a decoded audio file
type Info struct {
	Format     string
	SampleRate int
	Channels   int
	Duration   time.Duration
}

// Probe decodes the header (and for MP3 the frame index) of an audio file.
func Probe(path string) (*Info, error) {
	format, err := DetectFormat(path)
	if err != nil {
		return nil, err
	}

	var info *Info
	switch format {
	case FormatMP3:
		info, err = probeMP3(path)
	case FormatWAV:
		info, err = probeWAV(path)
	case FormatFLAC:
		info, err = probeFLAC(path)
	default:
		return nil, fmt.Errorf("%s: %w", path, ErrUnsupportedFormat)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", format, err)
	}
	if info.Duration <= 0 {
		return nil, ErrEmptyAudio
	}
	return info, nil
}

func probeMP3(path string) (*Info, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	decoder, err := mp3.NewDecoder(file)
	if err != nil {
		return nil, err
	}

	sampleRate := decoder.SampleRate()
	if sampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate %d", sampleRate)
	}

	// Decoder output is always 16-bit stereo PCM, 4 bytes per frame
	frames := decoder.Length() / 4
	return &Info{
		Format:     FormatMP3,
		SampleRate: sampleRate,
		Channels:   2,
		Duration:   time.Duration(frames) * time.Second / time.Duration(sampleRate),
	}, nil
}

func probeWAV(path string) (*Info, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	decoder := wav.NewDecoder(file)
	if err := decoder.FwdToPCM(); err != nil {
		return nil, err
	}
	if err := decoder.Err(); err != nil {
		return nil, err
	}
	if decoder.NumChans < 1 || decoder.BitDepth < 8 || decoder.SampleRate == 0 {
		return nil, fmt.Errorf("invalid WAV file")
	}

	// Duration comes from the data chunk; the RIFF size also counts headers
	frameSize := int64(decoder.NumChans) * int64(decoder.BitDepth/8)
	frames := decoder.PCMLen() / frameSize

	return &Info{
		Format:     FormatWAV,
		SampleRate: int(decoder.SampleRate),
		Channels:   int(decoder.NumChans),
		Duration:   time.Duration(frames) * time.Second / time.Duration(decoder.SampleRate),
	}, nil
}

func probeFLAC(path string) (*Info, error) {
	stream, err := flac.Open(path)
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	sampleRate := int(stream.Info.SampleRate)
	if sampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate %d", sampleRate)
	}

	return &Info{
		Format:     FormatFLAC,
		SampleRate: sampleRate,
		Channels:   int(stream.Info.NChannels),
		Duration:   time.Duration(stream.Info.NSamples) * time.Second / time.Duration(sampleRate),
	}, nil
}

// Package audio inspects and converts the audio files vkit writes.
package audio

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Formats recognised by DetectFormat
const (
	FormatMP3  = "mp3"
	FormatWAV  = "wav"
	FormatFLAC = "flac"
	FormatZip  = "zip"
)

// DetectFormat reads the first few bytes of the file to determine its type.
// Returns the format name (also its usual extension) or "" if unknown.
func DetectFormat(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	// WAV needs 12 bytes: "RIFF" + 4 bytes size + "WAVE"
	header := make([]byte, 12)
	n, err := io.ReadFull(f, header)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return "", err
	}
	return sniff(header[:n]), nil
}

func sniff(header []byte) string {
	n := len(header)
	if n < 3 {
		return ""
	}

	// WAV: RIFF....WAVE
	if n >= 12 && string(header[0:4]) == "RIFF" && string(header[8:12]) == "WAVE" {
		return FormatWAV
	}

	// FLAC: fLaC
	if n >= 4 && string(header[0:4]) == "fLaC" {
		return FormatFLAC
	}

	// Zip local file header: PK 03 04
	if n >= 4 && bytes.Equal(header[0:4], []byte{0x50, 0x4B, 0x03, 0x04}) {
		return FormatZip
	}

	// MP3 with an ID3v2 tag
	if string(header[0:3]) == "ID3" {
		return FormatMP3
	}

	// MP3 frame sync: 11 set bits, layer bits non-zero
	if header[0] == 0xFF && header[1]&0xE0 == 0xE0 && header[1]&0x06 != 0 {
		return FormatMP3
	}

	return ""
}

// FormatFromPath returns the format implied by the file extension
func FormatFromPath(path string) string {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	switch ext {
	case "mp3", "wav", "flac", "zip":
		return ext
	case "wave":
		return FormatWAV
	}
	return ext
}

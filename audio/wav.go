package audio

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Format describes raw PCM samples.
type Format struct {
	Channels      int
	SampleRate    int
	BitsPerSample int
}

// TTSFormat is what the speech models return: mono 16-bit PCM at 24 kHz.
var TTSFormat = Format{Channels: 1, SampleRate: 24000, BitsPerSample: 16}

func (f Format) blockAlign() int { return f.Channels * f.BitsPerSample / 8 }

// Duration returns how long n bytes of PCM in format f play, in seconds.
func (f Format) Duration(n int) float64 {
	if f.blockAlign() == 0 || f.SampleRate == 0 {
		return 0
	}
	return float64(n/f.blockAlign()) / float64(f.SampleRate)
}

// WriteWAV writes pcm as a canonical 44-byte-header RIFF/WAVE stream.
func WriteWAV(w io.Writer, pcm []byte, f Format) error {
	header := struct {
		ChunkID       [4]byte
		ChunkSize     uint32
		Format        [4]byte
		Subchunk1ID   [4]byte
		Subchunk1Size uint32
		AudioFormat   uint16
		NumChannels   uint16
		SampleRate    uint32
		ByteRate      uint32
		BlockAlign    uint16
		BitsPerSample uint16
		Subchunk2ID   [4]byte
		Subchunk2Size uint32
	}{
		ChunkID:       [4]byte{'R', 'I', 'F', 'F'},
		ChunkSize:     uint32(36 + len(pcm)),
		Format:        [4]byte{'W', 'A', 'V', 'E'},
		Subchunk1ID:   [4]byte{'f', 'm', 't', ' '},
		Subchunk1Size: 16,
		AudioFormat:   1,
		NumChannels:   uint16(f.Channels),
		SampleRate:    uint32(f.SampleRate),
		ByteRate:      uint32(f.SampleRate * f.blockAlign()),
		BlockAlign:    uint16(f.blockAlign()),
		BitsPerSample: uint16(f.BitsPerSample),
		Subchunk2ID:   [4]byte{'d', 'a', 't', 'a'},
		Subchunk2Size: uint32(len(pcm)),
	}
	if err := binary.Write(w, binary.LittleEndian, header); err != nil {
		return fmt.Errorf("writing wav header: %w", err)
	}
	_, err := w.Write(pcm)
	return err
}

// SaveWAV writes pcm to a .wav file at path.
func SaveWAV(path string, pcm []byte, f Format) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteWAV(out, pcm, f); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

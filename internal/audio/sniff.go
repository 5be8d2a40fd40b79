package audio

import (
	"bytes"
	"io"
	"os"
)

type container string

const (
	containerUnknown container = ""
	containerWAV     container = "wav"
	containerMP3     container = "mp3"
	containerFLAC    container = "flac"
	containerOgg     container = "ogg"
)

func (c container) extension() string {
	if c == containerUnknown {
		return ""
	}
	return "." + string(c)
}

// sniff identifies containers beep can decode from their magic bytes.
func sniff(head []byte) container {
	switch {
	case len(head) >= 12 && bytes.Equal(head[0:4], []byte("RIFF")) && bytes.Equal(head[8:12], []byte("WAVE")):
		return containerWAV
	case bytes.HasPrefix(head, []byte("fLaC")):
		return containerFLAC
	case bytes.HasPrefix(head, []byte("OggS")):
		return containerOgg
	case bytes.HasPrefix(head, []byte("ID3")):
		return containerMP3
	case len(head) >= 2 && head[0] == 0xFF && head[1]&0xE0 == 0xE0:
		return containerMP3
	default:
		return containerUnknown
	}
}

func sniffFile(path string) (container, error) {
	f, err := os.Open(path)
	if err != nil {
		return containerUnknown, err
	}
	defer f.Close()
	head := make([]byte, 16)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return containerUnknown, err
	}
	return sniff(head[:n]), nil
}

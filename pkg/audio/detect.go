package audio

import (
	"bytes"
	"io"
	"path/filepath"
	"strings"
)

// Format identifies an audio container
type Format string

const (
	FormatWAV         Format = "wav"
	FormatMP3         Format = "mp3"
	FormatFLAC        Format = "flac"
	FormatOGG         Format = "ogg"
	FormatAAC         Format = "aac"
	FormatUnsupported Format = "unsupported"
)

// sniffLen is the number of leading bytes needed by DetectFromContent
const sniffLen = 12

// Extension returns the canonical file extension of the format
func (f Format) Extension() string {
	switch f {
	case FormatWAV, FormatMP3, FormatFLAC, FormatOGG:
		return "." + string(f)
	case FormatAAC:
		return ".m4a"
	default:
		return ""
	}
}

// DetectFormat detects the container from the file name and falls back to
// the leading bytes of the content
func DetectFormat(name string, head []byte) Format {
	if f := DetectFromExtension(name); f != FormatUnsupported {
		return f
	}
	return DetectFromContent(head)
}

// DetectFromExtension maps a file extension onto a format
func DetectFromExtension(name string) Format {
	return NormalizeFormatName(strings.TrimPrefix(filepath.Ext(name), "."))
}

// DetectFromContent recognises WAV, MP3, FLAC, OGG and MP4 audio from their
// magic bytes
func DetectFromContent(head []byte) Format {
	switch {
	case len(head) >= 12 && bytes.Equal(head[0:4], []byte("RIFF")) && bytes.Equal(head[8:12], []byte("WAVE")):
		return FormatWAV
	case bytes.HasPrefix(head, []byte("ID3")):
		return FormatMP3
	case len(head) >= 2 && head[0] == 0xFF && head[1]&0xE0 == 0xE0 && head[1]&0x06 != 0:
		// MPEG audio frame sync with a layer set
		return FormatMP3
	case bytes.HasPrefix(head, []byte("fLaC")):
		return FormatFLAC
	case bytes.HasPrefix(head, []byte("OggS")):
		return FormatOGG
	case len(head) >= 8 && bytes.Equal(head[4:8], []byte("ftyp")):
		return FormatAAC
	default:
		return FormatUnsupported
	}
}

// NormalizeFormatName maps extensions, codec names and MIME types onto a
// format
func NormalizeFormatName(name string) Format {
	name = strings.ToLower(strings.TrimSpace(name))
	if idx := strings.Index(name, ";"); idx != -1 {
		name = strings.TrimSpace(name[:idx])
	}
	name = strings.TrimPrefix(name, "audio/")

	switch name {
	case "wav", "wave", "x-wav", "vnd.wave", "pcm":
		return FormatWAV
	case "mp3", "mpeg", "mpeg3", "x-mpeg-3", "mpga":
		return FormatMP3
	case "flac", "x-flac":
		return FormatFLAC
	case "ogg", "oga", "opus", "vorbis":
		return FormatOGG
	case "m4a", "mp4", "aac", "mp4a", "x-m4a":
		return FormatAAC
	default:
		return FormatUnsupported
	}
}

// sniff reads the leading bytes of r and rewinds it
func sniff(r io.ReadSeeker) ([]byte, error) {
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(r, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, err
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	return head[:n], nil
}

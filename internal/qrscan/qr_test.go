package qrscan

import (
	"bytes"
	"context"
	"image"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const verifyLink = "http://localhost:8080/verify?hash=0x3c71e1fb1a2f1dc0e4f7e8d3d0b4c3f2a1d0e9f8c7b6a5948372615049382716"

func TestEncodeDecodeRoundTrip(t *testing.T) {
	data, err := Encode(verifyLink, 180)
	require.NoError(t, err)

	text, err := DecodeReader(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, verifyLink, text)
}

func TestImage_QuietZone(t *testing.T) {
	img, err := Image("abc", 100)
	require.NoError(t, err)

	r, g, b, _ := img.At(1, 1).RGBA()
	assert.Equal(t, [3]uint32{0xffff, 0xffff, 0xffff}, [3]uint32{r, g, b})
	assert.GreaterOrEqual(t, img.Bounds().Dx(), 100+2*margin)
}

func TestEncode_EmptyPayload(t *testing.T) {
	_, err := Encode("", 180)
	assert.Error(t, err)
}

func TestDecode_NoCode(t *testing.T) {
	blank := image.NewGray(image.Rect(0, 0, 64, 64))
	for i := range blank.Pix {
		blank.Pix[i] = 0xff
	}

	_, err := Decode(blank)
	assert.ErrorIs(t, err, ErrNoQRCode)
}

func TestPayloadHash(t *testing.T) {
	tests := []struct {
		payload string
		want    string
	}{
		{verifyLink, "0x3c71e1fb1a2f1dc0e4f7e8d3d0b4c3f2a1d0e9f8c7b6a5948372615049382716"},
		{"  0xabc  ", "0xabc"},
		{"https://example.com/other", "https://example.com/other"},
		{"not a url", "not a url"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, PayloadHash(tt.payload), tt.payload)
	}
}

type scriptedSource struct {
	mu     sync.Mutex
	frames []image.Image
	calls  int
}

func (s *scriptedSource) Frame(ctx context.Context) (image.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if len(s.frames) == 0 {
		return nil, nil
	}
	f := s.frames[0]
	s.frames = s.frames[1:]
	return f, nil
}

func (s *scriptedSource) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func TestScanner_StopsAfterFirstDecode(t *testing.T) {
	code, err := Image(verifyLink, 180)
	require.NoError(t, err)

	src := &scriptedSource{frames: []image.Image{
		nil,
		image.NewRGBA(image.Rect(0, 0, 32, 32)),
		code,
		code,
	}}

	s := NewScanner(src, 5*time.Millisecond, nil)
	text, err := s.Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, verifyLink, text)

	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, 3, src.Calls())
}

func TestScanner_ContextCancel(t *testing.T) {
	src := &scriptedSource{}
	s := NewScanner(src, 5*time.Millisecond, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err := s.Scan(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestFileSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshot.png")
	src := FileSource{Path: path}

	frame, err := src.Frame(context.Background())
	require.NoError(t, err)
	assert.Nil(t, frame)

	data, err := Encode("hello", 120)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	frame, err = src.Frame(context.Background())
	require.NoError(t, err)
	require.NotNil(t, frame)

	text, err := Decode(frame)
	require.NoError(t, err)
	assert.Equal(t, "hello", text)
}

// Package loaders provides the asset loaders registered with the retrying loader
package loaders

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"

	"github.com/Masterminds/semver/v3"
	"github.com/tidwall/gjson"

	"github.com/stacklok/spatial-anchors/internal/assets"
	"github.com/stacklok/spatial-anchors/internal/httpclient"
)

// Asset types registered by NewRegistry
const (
	TypeBytes = "bytes"
	TypeJSON  = "json"
	TypeGLTF  = "gltf"
	TypeAudio = "audio"
)

// ErrUnsupportedFormat is returned when downloaded content cannot be decoded
var ErrUnsupportedFormat = assets.ErrUnsupportedFormat

// supportedGLTF accepts every glTF 2.x asset
var supportedGLTF = func() *semver.Constraints {
	c, err := semver.NewConstraint("^2.0")
	if err != nil {
		panic(err)
	}
	return c
}()

// NewRegistry returns a registry with every loader of this package
func NewRegistry(client httpclient.Client) assets.Registry {
	return assets.Registry{
		TypeBytes: &Bytes{client: client},
		TypeJSON:  &JSON{client: client},
		TypeGLTF:  &GLTF{client: client},
		TypeAudio: &Audio{client: client},
	}
}

func fetch(ctx context.Context, client httpclient.Client, url string, progress httpclient.ProgressFunc) ([]byte, error) {
	var opts []httpclient.RequestOption
	if progress != nil {
		opts = append(opts, httpclient.WithProgress(progress))
	}
	return client.Get(ctx, url, opts...)
}

// Bytes returns the raw content
type Bytes struct {
	client httpclient.Client
}

// Load downloads url
func (b *Bytes) Load(ctx context.Context, url string, progress httpclient.ProgressFunc) (any, error) {
	return fetch(ctx, b.client, url, progress)
}

// JSON decodes a JSON document into a gjson.Result
type JSON struct {
	client httpclient.Client
}

// Load downloads and validates a JSON document
func (j *JSON) Load(ctx context.Context, url string, progress httpclient.ProgressFunc) (any, error) {
	data, err := fetch(ctx, j.client, url, progress)
	if err != nil {
		return nil, err
	}
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("%w: invalid JSON", ErrUnsupportedFormat)
	}
	return gjson.ParseBytes(data), nil
}

// Model summarises a decoded glTF asset
type Model struct {
	Version   string
	Generator string
	Scenes    int
	Nodes     int
	Meshes    int

	// Binary is the GLB binary chunk, nil for .gltf documents
	Binary []byte
}

// GLTF decodes .gltf JSON documents and .glb containers
type GLTF struct {
	client httpclient.Client
}

const (
	glbMagic     = 0x46546C67 // "glTF"
	glbChunkJSON = 0x4E4F534A // "JSON"
	glbChunkBIN  = 0x004E4942 // "BIN\x00"
	glbHeaderLen = 12
)

// Load downloads and decodes a glTF asset
func (g *GLTF) Load(ctx context.Context, url string, progress httpclient.ProgressFunc) (any, error) {
	data, err := fetch(ctx, g.client, url, progress)
	if err != nil {
		return nil, err
	}
	return DecodeGLTF(data)
}

// DecodeGLTF decodes a .gltf document or a .glb container
func DecodeGLTF(data []byte) (*Model, error) {
	var (
		doc []byte
		bin []byte
	)
	if len(data) >= 4 && binary.LittleEndian.Uint32(data) == glbMagic {
		var err error
		doc, bin, err = splitGLB(data)
		if err != nil {
			return nil, err
		}
	} else {
		doc = data
	}

	if !gjson.ValidBytes(doc) {
		return nil, fmt.Errorf("%w: invalid glTF JSON", ErrUnsupportedFormat)
	}
	version := gjson.GetBytes(doc, "asset.version")
	if !version.Exists() {
		return nil, fmt.Errorf("%w: glTF document has no asset.version", ErrUnsupportedFormat)
	}
	v, err := semver.NewVersion(version.String())
	if err != nil {
		return nil, fmt.Errorf("%w: glTF version %q: %w", ErrUnsupportedFormat, version.String(), err)
	}
	if !supportedGLTF.Check(v) {
		return nil, fmt.Errorf("%w: glTF version %s", ErrUnsupportedFormat, v)
	}

	return &Model{
		Version:   version.String(),
		Generator: gjson.GetBytes(doc, "asset.generator").String(),
		Scenes:    int(gjson.GetBytes(doc, "scenes.#").Int()),
		Nodes:     int(gjson.GetBytes(doc, "nodes.#").Int()),
		Meshes:    int(gjson.GetBytes(doc, "meshes.#").Int()),
		Binary:    bin,
	}, nil
}

func splitGLB(data []byte) (doc, bin []byte, err error) {
	if len(data) < glbHeaderLen {
		return nil, nil, fmt.Errorf("%w: truncated GLB header", ErrUnsupportedFormat)
	}
	if v := binary.LittleEndian.Uint32(data[4:]); v != 2 {
		return nil, nil, fmt.Errorf("%w: GLB version %d", ErrUnsupportedFormat, v)
	}
	total := int(binary.LittleEndian.Uint32(data[8:]))
	if total > len(data) {
		return nil, nil, fmt.Errorf("%w: GLB length %d exceeds %d bytes received", ErrUnsupportedFormat, total, len(data))
	}

	offset := glbHeaderLen
	for offset+8 <= total {
		length := int(binary.LittleEndian.Uint32(data[offset:]))
		kind := binary.LittleEndian.Uint32(data[offset+4:])
		start := offset + 8
		if length < 0 || start+length > total {
			return nil, nil, fmt.Errorf("%w: GLB chunk overruns container", ErrUnsupportedFormat)
		}
		switch kind {
		case glbChunkJSON:
			doc = data[start : start+length]
		case glbChunkBIN:
			bin = data[start : start+length]
		}
		offset = start + length
	}
	if doc == nil {
		return nil, nil, fmt.Errorf("%w: GLB has no JSON chunk", ErrUnsupportedFormat)
	}
	return doc, bin, nil
}

// AudioClip is a downloaded audio file
type AudioClip struct {
	// Format is "webm", "ogg", "wav" or "mp3"
	Format string
	Data   []byte
}

// Audio validates the container of downloaded audio
type Audio struct {
	client httpclient.Client
}

// Load downloads an audio file and detects its container format
func (a *Audio) Load(ctx context.Context, url string, progress httpclient.ProgressFunc) (any, error) {
	data, err := fetch(ctx, a.client, url, progress)
	if err != nil {
		return nil, err
	}
	format, err := DetectAudioFormat(data)
	if err != nil {
		return nil, err
	}
	return &AudioClip{Format: format, Data: data}, nil
}

// DetectAudioFormat identifies the audio container from its magic bytes
func DetectAudioFormat(data []byte) (string, error) {
	switch {
	case bytes.HasPrefix(data, []byte{0x1A, 0x45, 0xDF, 0xA3}):
		return "webm", nil
	case bytes.HasPrefix(data, []byte("OggS")):
		return "ogg", nil
	case len(data) >= 12 && bytes.Equal(data[:4], []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WAVE")):
		return "wav", nil
	case bytes.HasPrefix(data, []byte("ID3")), len(data) >= 2 && data[0] == 0xFF && data[1]&0xE0 == 0xE0:
		return "mp3", nil
	}
	return "", fmt.Errorf("%w: unrecognised audio container", ErrUnsupportedFormat)
}

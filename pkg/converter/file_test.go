package converter

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarizeMIDIInvalid(t *testing.T) {
	_, err := SummarizeMIDI([]byte("garbage data, not midi"))
	require.Error(t, err)
}

func TestConvertFile(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "bgm01.msd")
	output := filepath.Join(dir, "bgm01.mid")

	data := buildMSD(480, msdPacket(1, 99, msdEvent(10, 0x90, 60, 100, 0)))
	require.NoError(t, os.WriteFile(input, data, 0644))

	conv := New(Options{})
	require.NoError(t, conv.ConvertFile(input, output))

	out, err := os.ReadFile(output)
	require.NoError(t, err)
	require.NoError(t, VerifyMIDI(out))
}

func TestConvertFileWrongDirection(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(input, []byte("plain text"), 0644))

	err := New(Options{}).ConvertFile(input, filepath.Join(dir, "out.mid"))
	assert.ErrorIs(t, err, ErrUnknownFormat)

	msd := filepath.Join(dir, "bgm.msd")
	require.NoError(t, os.WriteFile(msd, buildMSD(480), 0644))
	err = New(Options{}).ConvertFile(msd, filepath.Join(dir, "out.syx"))
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestConvertDir(t *testing.T) {
	dir := t.TempDir()
	good := buildMSD(480, msdPacket(1, 99, msdEvent(10, 0x90, 60, 100, 0)))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.msd"), good, 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.msd"), []byte("broken"), 0644))

	results, err := New(Options{}).ConvertDir(dir)
	require.NoError(t, err)
	require.Len(t, results, 2)

	byName := map[string]FileResult{}
	for _, res := range results {
		byName[filepath.Base(res.Input)] = res
	}

	assert.NoError(t, byName["a.msd"].Err)
	assert.FileExists(t, filepath.Join(dir, "a.mid"))
	assert.ErrorIs(t, byName["b.msd"].Err, ErrInvalidHeader)
}

func TestConvertDirEmpty(t *testing.T) {
	_, err := New(Options{}).ConvertDir(t.TempDir())
	assert.Error(t, err)
}

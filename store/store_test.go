package store

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testDoc struct {
	Counter int               `json:"counter"`
	Names   map[string]string `json:"names"`
}

func TestStore_LoadMissingFile(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)

	doc := testDoc{Names: map[string]string{}}
	err = s.Load("economy.json", &doc)

	assert.NoError(t, err)
	assert.Equal(t, 0, doc.Counter)
}

func TestStore_SaveThenLoad(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)

	out := testDoc{Counter: 7, Names: map[string]string{"123": "alice"}}
	require.NoError(t, s.Save("giveaways/555.json", &out))

	var in testDoc
	require.NoError(t, s.Load("giveaways/555.json", &in))

	assert.Equal(t, 7, in.Counter)
	assert.Equal(t, "alice", in.Names["123"])
}

func TestStore_MutateIsReadModifyWrite(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)

	var doc testDoc
	require.NoError(t, s.Mutate("moderation/jail.json", &doc, func() error {
		doc.Counter = 1
		return nil
	}))

	var again testDoc
	require.NoError(t, s.Mutate("moderation/jail.json", &again, func() error {
		again.Counter++
		return nil
	}))

	var final testDoc
	require.NoError(t, s.Load("moderation/jail.json", &final))
	assert.Equal(t, 2, final.Counter)
}

func TestStore_MutateErrorDoesNotWrite(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir)
	require.NoError(t, err)

	require.NoError(t, s.Save("economy.json", &testDoc{Counter: 5}))

	var doc testDoc
	mutErr := s.Mutate("economy.json", &doc, func() error {
		doc.Counter = 99
		return assert.AnError
	})
	assert.Error(t, mutErr)

	var final testDoc
	require.NoError(t, s.Load("economy.json", &final))
	assert.Equal(t, 5, final.Counter)
}

func TestStore_ConcurrentMutatesSerialize(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var doc testDoc
			_ = s.Mutate("economy.json", &doc, func() error {
				doc.Counter++
				return nil
			})
		}()
	}
	wg.Wait()

	var final testDoc
	require.NoError(t, s.Load("economy.json", &final))
	assert.Equal(t, 25, final.Counter)
}

func TestStore_NoTempFilesLeftBehind(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir)
	require.NoError(t, err)

	require.NoError(t, s.Save("voicemaster.json", &testDoc{Counter: 1}))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), ".tmp-")
	}
}

func TestStore_List(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, s.Save("giveaways/1.json", &testDoc{}))
	require.NoError(t, s.Save("giveaways/2.json", &testDoc{}))

	paths, err := s.List("giveaways")
	require.NoError(t, err)
	assert.Len(t, paths, 2)
	assert.Contains(t, paths, "giveaways/"+filepath.Base("1.json"))
}

package dispatch

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntry_Format(t *testing.T) {
	e := Entry{
		Time:    time.Date(2026, 3, 4, 5, 6, 7, 0, time.Local),
		List:    "orders",
		To:      "alice@example.com",
		Subject: "Your order",
		Body:    "Dear Ms. Alice,\n\nHello Alice.",
	}

	want := strings.Repeat("=", 60) + "\n" +
		"Timestamp: 2026-03-04 05:06:07\n" +
		"List: orders\n" +
		"To: alice@example.com\n" +
		"Subject: Your order\n" +
		strings.Repeat("-", 40) + "\n" +
		"Dear Ms. Alice,\n\nHello Alice.\n" +
		strings.Repeat("=", 60) + "\n\n"
	assert.Equal(t, want, e.Format())

	e.List = ""
	assert.NotContains(t, e.Format(), "List:")
}

func TestSendLog_Append(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "email_log.txt")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte("previous run\n"), 0644))

	l := NewSendLog(path)
	require.NoError(t, l.Append(Entry{Time: time.Now(), To: "a@example.com", Subject: "one", Body: "1"}))
	require.NoError(t, l.Append(Entry{Time: time.Now(), To: "b@example.com", Subject: "two", Body: "2"}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	content := string(data)

	assert.True(t, strings.HasPrefix(content, "previous run\n"), "existing content must be kept")
	assert.Equal(t, 2, strings.Count(content, "Timestamp: "))
	assert.Less(t, strings.Index(content, "a@example.com"), strings.Index(content, "b@example.com"))
}

func TestSendLog_CreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "new", "dir", "email_log.txt")
	require.NoError(t, NewSendLog(path).Append(Entry{Time: time.Now(), To: "a@example.com"}))

	_, err := os.Stat(path)
	require.NoError(t, err)
}

func TestSendLog_ConcurrentAppendsDoNotInterleave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "email_log.txt")
	l := NewSendLog(path)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = l.Append(Entry{Time: time.Now(), To: "x@example.com", Subject: "s", Body: strings.Repeat("b", 512)})
		}()
	}
	wg.Wait()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	blocks := strings.Split(strings.TrimSuffix(string(data), "\n\n"), "\n\n"+strings.Repeat("=", 60)+"\nTimestamp")
	assert.Len(t, blocks, 20)
}

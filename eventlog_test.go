package go_file_chat

import (
    "bufio"
    "bytes"
    "encoding/json"
    "os"
    "path/filepath"
    "testing"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
)

// readEvents decode every JSON line in `data`.
func readEvents(t *testing.T, data []byte) []map[string]any {
    t.Helper()

    var events []map[string]any
    scanner := bufio.NewScanner(bytes.NewReader(data))
    for scanner.Scan() {
        var ev map[string]any
        require.NoError(t, json.Unmarshal(scanner.Bytes(), &ev))
        events = append(events, ev)
    }
    return events
}

func TestEventLog(t *testing.T) {
    var buf bytes.Buffer
    log := NewEventLog(&buf)

    log.Connect("alice", "127.0.0.1:1234")
    log.Message("alice", "127.0.0.1:1234", "hello")
    log.Disconnect("alice", "127.0.0.1:1234")
    require.NoError(t, log.Close())

    events := readEvents(t, buf.Bytes())
    require.Len(t, events, 3)

    for i, want := range []string{"connect", "message", "disconnect"} {
        assert.Equal(t, want, events[i]["event"])
        assert.Equal(t, "alice", events[i]["name"])
        assert.Equal(t, "127.0.0.1:1234", events[i]["remote"])
        assert.Contains(t, events[i], "time")
    }
    assert.Equal(t, "hello", events[1]["line"])
}

func TestNilEventLog(t *testing.T) {
    var log *EventLog

    log.Connect("alice", "remote")
    log.Message("alice", "remote", "hello")
    log.Disconnect("alice", "remote")
    assert.NoError(t, log.Close())
}

func TestOpenEventLog(t *testing.T) {
    path := filepath.Join(t.TempDir(), "server.log")

    log, err := OpenEventLog(path)
    require.NoError(t, err)
    log.Connect("alice", "remote")
    require.NoError(t, log.Close())

    // Appended, not truncated.
    log, err = OpenEventLog(path)
    require.NoError(t, err)
    log.Disconnect("alice", "remote")
    require.NoError(t, log.Close())

    data, err := os.ReadFile(path)
    require.NoError(t, err)
    events := readEvents(t, data)
    require.Len(t, events, 2)
    assert.Equal(t, "connect", events[0]["event"])
    assert.Equal(t, "disconnect", events[1]["event"])

    _, err = OpenEventLog(filepath.Join(path, "not-a-dir", "server.log"))
    assert.Error(t, err)
}

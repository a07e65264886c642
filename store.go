package go_file_chat

import (
    "context"
    "errors"
    "fmt"
    "io/fs"
    "os"
    "path/filepath"
    "strings"
    "sync"

    "github.com/fsnotify/fsnotify"
    "github.com/rs/zerolog"
)

// fileListHeader starts every file listing sent to clients.
const fileListHeader = "Available files:"

// FileStore is the directory from which files are listed and downloaded.
//
// While watched (see `Watch`), the listing is cached and only read again
// after the directory changes.
type FileStore struct {
    // The directory served by this store.
    dir string

    // logger used by the watcher.
    logger zerolog.Logger

    // lock the fields below.
    lock sync.Mutex

    // Whether a watcher is currently keeping `cache` up to date.
    watching bool

    // The cached listing, valid while `cached` is set.
    cache []string
    cached bool

    // generation is incremented on every invalidation, so a listing that
    // raced with a change is never cached.
    generation uint64
}

// NewFileStore create a store serving `dir`.
func NewFileStore(dir string, logger zerolog.Logger) *FileStore {
    return &FileStore {
        dir: dir,
        logger: logger,
    }
}

// Dir retrieve the directory served by this store.
func (s *FileStore) Dir() string {
    return s.dir
}

// List retrieve the sorted names of the regular files in the store.
func (s *FileStore) List() ([]string, error) {
    s.lock.Lock()
    if s.watching && s.cached {
        list := append([]string(nil), s.cache...)
        s.lock.Unlock()
        return list, nil
    }
    gen := s.generation
    s.lock.Unlock()

    list, err := s.readDir()
    if err != nil {
        return nil, err
    }

    s.lock.Lock()
    if s.watching && gen == s.generation {
        s.cache = append([]string(nil), list...)
        s.cached = true
    }
    s.lock.Unlock()

    return list, nil
}

// readDir list the regular files in the directory. `os.ReadDir` already
// sorts the entries by name.
func (s *FileStore) readDir() ([]string, error) {
    entries, err := os.ReadDir(s.dir)
    if err != nil {
        return nil, fmt.Errorf("list %s: %w", s.dir, err)
    }

    list := make([]string, 0, len(entries))
    for _, e := range entries {
        if e.Type().IsRegular() {
            list = append(list, e.Name())
        }
    }
    return list, nil
}

// invalidate the cached listing.
func (s *FileStore) invalidate() {
    s.lock.Lock()
    s.cached = false
    s.cache = nil
    s.generation++
    s.lock.Unlock()
}

// ReadFile read the whole contents of the file `name`.
//
// Only bare file names are accepted. Anything else, as well as missing
// files and directories, fails with `FileNotFound`.
func (s *FileStore) ReadFile(name string) ([]byte, error) {
    if !validFileName(name) {
        return nil, fmt.Errorf("invalid name %q: %w", name, FileNotFound)
    }

    path := filepath.Join(s.dir, name)
    info, err := os.Stat(path)
    if errors.Is(err, fs.ErrNotExist) {
        return nil, fmt.Errorf("%s: %w", name, FileNotFound)
    } else if err != nil {
        return nil, err
    } else if !info.Mode().IsRegular() {
        return nil, fmt.Errorf("%s is not a regular file: %w", name, FileNotFound)
    }

    return os.ReadFile(path)
}

// validFileName check that `name` refers to a file directly inside a
// directory.
func validFileName(name string) bool {
    return len(name) > 0 && name != "." && name != ".." &&
            !strings.ContainsAny(name, `/\`) && filepath.Base(name) == name
}

// Watch start caching the listing, invalidating it whenever the directory
// changes, until `ctx` is done.
//
// If the directory can't be watched, the error is returned and the store
// keeps reading the directory on every `List`.
func (s *FileStore) Watch(ctx context.Context) error {
    watcher, err := fsnotify.NewWatcher()
    if err != nil {
        return fmt.Errorf("create watcher: %w", err)
    }
    if err := watcher.Add(s.dir); err != nil {
        watcher.Close()
        return fmt.Errorf("watch %s: %w", s.dir, err)
    }

    s.lock.Lock()
    s.watching = true
    s.lock.Unlock()
    s.invalidate()

    go s.watchLoop(ctx, watcher)
    return nil
}

// watchLoop invalidate the listing on every event from `watcher`.
func (s *FileStore) watchLoop(ctx context.Context, watcher *fsnotify.Watcher) {
    defer func() {
        watcher.Close()

        s.lock.Lock()
        s.watching = false
        s.lock.Unlock()
        s.invalidate()
    }()

    for {
        select {
        case <-ctx.Done():
            return
        case ev, ok := <-watcher.Events:
            if !ok {
                return
            }
            s.logger.Debug().
                Str("file", ev.Name).
                Str("op", ev.Op.String()).
                Msg("download directory changed")
            s.invalidate()
        case err, ok := <-watcher.Errors:
            if !ok {
                return
            }
            s.logger.Warn().Err(err).Msg("download directory watcher failed")
            s.invalidate()
        }
    }
}

// FileListing format the reply to a file list request.
func FileListing(names []string) string {
    if len(names) == 0 {
        return fileListHeader + "\n(none)"
    }
    return fileListHeader + "\n" + strings.Join(names, "\n")
}

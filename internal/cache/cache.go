package cache

import (
	"crypto/md5"
	"encoding/gob"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gnoswap-labs/degoto/internal/frontend"
)

const (
	cacheFileName = "degoto_cache.gob"
	// DefaultMaxAge bounds how long an entry is trusted.
	DefaultMaxAge = 24 * time.Hour
)

type fileMetadata struct {
	Hash         string
	LastModified time.Time
}

// Entry is the cached outcome of rewriting one file.
type Entry struct {
	Metadata     fileMetadata
	Output       []byte
	Funcs        []frontend.Summary
	CreatedAt    time.Time
	LastAccessed time.Time
}

// Cache remembers rewrite results of unchanged files across runs. An entry
// is dropped when its file, or any dependency such as the config file,
// changes.
type Cache struct {
	CacheDir         string
	entries          map[string]Entry
	mutex            sync.Mutex
	maxAge           time.Duration
	dependencyFiles  []string
	dependencyHashes map[string]string
	fingerprint      string
}

// New opens the cache stored in cacheDir, creating the directory if needed.
func New(cacheDir string) (*Cache, error) {
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	c := &Cache{
		CacheDir:         cacheDir,
		entries:          make(map[string]Entry),
		maxAge:           DefaultMaxAge,
		dependencyHashes: make(map[string]string),
	}
	if err := c.load(); err != nil {
		return nil, fmt.Errorf("failed to load cache: %w", err)
	}
	return c, nil
}

func (c *Cache) path() string {
	return filepath.Join(c.CacheDir, cacheFileName)
}

func (c *Cache) load() error {
	file, err := os.Open(c.path())
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to open cache file: %w", err)
	}
	defer file.Close()

	var stored struct {
		Entries      map[string]Entry
		Dependencies map[string]string
		Fingerprint  string
	}
	if err := gob.NewDecoder(file).Decode(&stored); err != nil {
		return fmt.Errorf("failed to decode cache file: %w", err)
	}
	if stored.Entries != nil {
		c.entries = stored.Entries
	}
	if stored.Dependencies != nil {
		c.dependencyHashes = stored.Dependencies
	}
	c.fingerprint = stored.Fingerprint
	return nil
}

func (c *Cache) save() error {
	file, err := os.Create(c.path())
	if err != nil {
		return fmt.Errorf("failed to create cache file: %w", err)
	}
	defer file.Close()

	stored := struct {
		Entries      map[string]Entry
		Dependencies map[string]string
		Fingerprint  string
	}{c.entries, c.dependencyHashes, c.fingerprint}
	if err := gob.NewEncoder(file).Encode(stored); err != nil {
		return fmt.Errorf("failed to encode cache file: %w", err)
	}
	return nil
}

// SetDependencies names files whose change invalidates every entry. If any
// of them differs from the last saved run, the cache starts empty.
func (c *Cache) SetDependencies(files ...string) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.dependencyFiles = files
	if c.haveDependenciesChanged() {
		c.entries = make(map[string]Entry)
	}
	return c.updateDependencyHashes()
}

// SetFingerprint records a digest of the settings entries are produced
// with. A digest different from the last saved run empties the cache.
func (c *Cache) SetFingerprint(fingerprint string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.fingerprint != fingerprint {
		c.entries = make(map[string]Entry)
		c.fingerprint = fingerprint
	}
}

// Set records the outcome for filename as of its current contents.
func (c *Cache) Set(filename string, output []byte, funcs []frontend.Summary) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	metadata, err := getFileMetadata(filename)
	if err != nil {
		return fmt.Errorf("failed to get file metadata: %w", err)
	}
	now := time.Now()
	c.entries[filename] = Entry{
		Metadata:     metadata,
		Output:       output,
		Funcs:        funcs,
		CreatedAt:    now,
		LastAccessed: now,
	}
	return c.save()
}

// Get returns the entry for filename if the file is unchanged.
func (c *Cache) Get(filename string) (Entry, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	entry, exists := c.entries[filename]
	if !exists {
		return Entry{}, false
	}
	if c.isEntryInvalid(filename, entry) {
		delete(c.entries, filename)
		return Entry{}, false
	}

	entry.LastAccessed = time.Now()
	c.entries[filename] = entry
	return entry, true
}

func (c *Cache) isEntryInvalid(filename string, entry Entry) bool {
	if time.Since(entry.CreatedAt) > c.maxAge {
		return true
	}
	current, err := getFileMetadata(filename)
	if err != nil || current.Hash != entry.Metadata.Hash {
		return true
	}
	return false
}

func (c *Cache) haveDependenciesChanged() bool {
	for _, file := range c.dependencyFiles {
		hash, err := getFileHash(file)
		if err != nil || hash != c.dependencyHashes[file] {
			return true
		}
	}
	return false
}

func (c *Cache) updateDependencyHashes() error {
	for _, file := range c.dependencyFiles {
		hash, err := getFileHash(file)
		if err != nil {
			return fmt.Errorf("failed to get hash for %s: %w", file, err)
		}
		c.dependencyHashes[file] = hash
	}
	return nil
}

// SetMaxAge changes how long entries stay valid.
func (c *Cache) SetMaxAge(d time.Duration) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.maxAge = d
}

// InvalidateAll empties the cache.
func (c *Cache) InvalidateAll() error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.entries = make(map[string]Entry)
	return c.save()
}

func getFileMetadata(filename string) (fileMetadata, error) {
	hash, err := getFileHash(filename)
	if err != nil {
		return fileMetadata{}, err
	}
	info, err := os.Stat(filename)
	if err != nil {
		return fileMetadata{}, fmt.Errorf("failed to get file info: %w", err)
	}
	return fileMetadata{Hash: hash, LastModified: info.ModTime()}, nil
}

func getFileHash(filename string) (string, error) {
	file, err := os.Open(filename)
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	hash := md5.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", fmt.Errorf("failed to calculate hash: %w", err)
	}
	return fmt.Sprintf("%x", hash.Sum(nil)), nil
}

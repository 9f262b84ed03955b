package objproc

import (
	"fmt"
	"strings"
	"sync"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/transform"
)

// NameDecoder converts raw object, group and material names to strings.
type NameDecoder interface {
	// Decode returns the UTF-8 form of a raw name. Implementations must be safe for concurrent use.
	Decode(raw []byte) string
}

// nameDecoder decodes names through an optional legacy encoding and interns the results.
type nameDecoder struct {
	mu       sync.RWMutex
	enc      encoding.Encoding
	cache    map[string]string
	maxSize  int
	accesses map[string]int // access frequency for LRU-like eviction
}

// encodings lists the supported name encodings by their lowercase label.
var encodings = map[string]encoding.Encoding{
	"shift_jis":    japanese.ShiftJIS,
	"sjis":         japanese.ShiftJIS,
	"euc-jp":       japanese.EUCJP,
	"euc-kr":       korean.EUCKR,
	"gbk":          simplifiedchinese.GBK,
	"windows-1252": charmap.Windows1252,
	"iso-8859-1":   charmap.ISO8859_1,
}

// NewNameDecoder creates a decoder for the named encoding ("" or "utf-8" leaves names untouched).
func NewNameDecoder(encodingName string, maxSize int) (NameDecoder, error) {
	if maxSize <= 0 {
		maxSize = 1024
	}

	d := &nameDecoder{
		cache:    make(map[string]string),
		maxSize:  maxSize,
		accesses: make(map[string]int),
	}

	label := strings.ToLower(strings.TrimSpace(encodingName))
	switch label {
	case "", "utf-8", "utf8":
		// names are used as-is
	default:
		enc, ok := encodings[label]
		if !ok {
			return nil, fmt.Errorf("unsupported name encoding '%s'", encodingName)
		}
		d.enc = enc
	}

	return d, nil
}

// Decode returns the cached name for raw, decoding and caching it on first use.
func (d *nameDecoder) Decode(raw []byte) string {
	d.mu.RLock()
	if name, ok := d.cache[string(raw)]; ok {
		d.mu.RUnlock()
		d.mu.Lock()
		d.accesses[string(raw)]++
		d.mu.Unlock()
		return name
	}
	d.mu.RUnlock()

	d.mu.Lock()
	defer d.mu.Unlock()

	// another goroutine might have added it meanwhile
	if name, ok := d.cache[string(raw)]; ok {
		d.accesses[string(raw)]++
		return name
	}

	key := string(raw)
	name := d.convert(raw)

	// evict the least used entry if at capacity
	if len(d.cache) >= d.maxSize {
		var lruKey string
		minAccess := int(^uint(0) >> 1)
		for k, count := range d.accesses {
			if count < minAccess {
				minAccess = count
				lruKey = k
			}
		}
		delete(d.cache, lruKey)
		delete(d.accesses, lruKey)
	}

	d.cache[key] = name
	d.accesses[key] = 1

	return name
}

// convert decodes raw through the configured encoding, returning it unchanged if decoding fails.
func (d *nameDecoder) convert(raw []byte) string {
	if d.enc == nil {
		return string(raw)
	}

	result, _, err := transform.Bytes(d.enc.NewDecoder(), raw)
	if err != nil {
		return string(raw)
	}
	return string(result)
}

// defaultNames is used when ParseOptions.Names is nil.
var defaultNames = must(NewNameDecoder("", 1024))

func must(d NameDecoder, err error) NameDecoder {
	if err != nil {
		panic(err)
	}
	return d
}

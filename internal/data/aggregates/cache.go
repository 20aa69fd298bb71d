package aggregates

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
	goredis "github.com/redis/go-redis/v9"
	domainagg "github.com/yungbote/facility-backend/internal/domain/aggregates"
	"github.com/yungbote/facility-backend/internal/platform/logger"
)

// DocumentCache is a read-through cache of hydrated documents. Writers evict the
// entry after commit; a miss or a cache failure falls back to the database.
//
// Every Delete advances the key's generation. A reader takes the generation
// before touching the database and hands it back to Fill, which drops the
// document when an eviction happened in between.
type DocumentCache interface {
	Get(ctx context.Context, key string) (*domainagg.Document, bool)
	Generation(ctx context.Context, key string) uint64
	Fill(ctx context.Context, key string, gen uint64, doc *domainagg.Document)
	Delete(ctx context.Context, key string)
}

// NoGeneration is returned when the generation could not be read; Fill never
// stores under it.
const NoGeneration = ^uint64(0)

// DocumentKey is the cache key of one document.
func DocumentKey(typeName, tenantID string, id uuid.UUID) string {
	return typeName + ":" + tenantID + ":" + id.String()
}

type noopCache struct{}

func NewNoopCache() DocumentCache { return noopCache{} }

func (noopCache) Get(context.Context, string) (*domainagg.Document, bool)   { return nil, false }
func (noopCache) Generation(context.Context, string) uint64                 { return NoGeneration }
func (noopCache) Fill(context.Context, string, uint64, *domainagg.Document) {}
func (noopCache) Delete(context.Context, string)                            {}

const DefaultCacheTTL = 5 * time.Minute

// generationGrace keeps a generation alive past the documents it guards, so a
// slow reader still sees the eviction it raced with.
const generationGrace = time.Minute

type memoryCache struct {
	mu   sync.Mutex
	seq  uint64
	docs *gocache.Cache
	gens *gocache.Cache
}

// NewMemoryCache keeps documents in process. Stored and returned documents are
// clones, so callers may mutate what they get.
func NewMemoryCache(ttl time.Duration) DocumentCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &memoryCache{
		docs: gocache.New(ttl, 2*ttl),
		gens: gocache.New(ttl+generationGrace, 2*ttl),
	}
}

func (c *memoryCache) Get(_ context.Context, key string) (*domainagg.Document, bool) {
	v, ok := c.docs.Get(key)
	if !ok {
		return nil, false
	}
	doc, ok := v.(*domainagg.Document)
	if !ok {
		return nil, false
	}
	return doc.Clone(), true
}

func (c *memoryCache) Generation(_ context.Context, key string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generation(key)
}

func (c *memoryCache) generation(key string) uint64 {
	v, ok := c.gens.Get(key)
	if !ok {
		return 0
	}
	g, _ := v.(uint64)
	return g
}

func (c *memoryCache) Fill(_ context.Context, key string, gen uint64, doc *domainagg.Document) {
	if doc == nil || gen == NoGeneration {
		return
	}
	cp := doc.Clone()
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generation(key) != gen {
		return
	}
	c.docs.Set(key, cp, gocache.DefaultExpiration)
}

// Delete drops the document and moves its generation to a value never handed
// out before.
func (c *memoryCache) Delete(_ context.Context, key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	c.gens.Set(key, c.seq, gocache.DefaultExpiration)
	c.docs.Delete(key)
}

type redisCache struct {
	log    *logger.Logger
	rdb    goredis.UniversalClient
	reg    *domainagg.Registry
	prefix string
	ttl    time.Duration
}

// NewRedisCache shares documents across instances. Values are stored as JSON and
// re-typed through the registry on the way out.
func NewRedisCache(log *logger.Logger, rdb goredis.UniversalClient, reg *domainagg.Registry, prefix string, ttl time.Duration) (DocumentCache, error) {
	if rdb == nil {
		return nil, fmt.Errorf("redis client required")
	}
	if reg == nil {
		return nil, fmt.Errorf("registry required")
	}
	if log == nil {
		log = logger.NewNop()
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = "facility:doc"
	}
	return &redisCache{
		log:    log.With("service", "RedisDocumentCache"),
		rdb:    rdb,
		reg:    reg,
		prefix: prefix,
		ttl:    ttl,
	}, nil
}

type cachedDocument struct {
	Type        string                      `json:"type"`
	ID          uuid.UUID                   `json:"id"`
	PropertyID  string                      `json:"property_id"`
	CreatedAt   time.Time                   `json:"created_at"`
	UpdatedAt   time.Time                   `json:"updated_at"`
	Fields      map[string]any              `json:"fields"`
	Singletons  map[string]map[string]any   `json:"singletons"`
	Collections map[string][]map[string]any `json:"collections"`
	Loaded      []string                    `json:"loaded"`
}

func (c *redisCache) key(k string) string    { return c.prefix + ":" + k }
func (c *redisCache) genKey(k string) string { return c.prefix + ":gen:" + k }

var errStaleFill = errors.New("document evicted during read")

func (c *redisCache) Get(ctx context.Context, key string) (*domainagg.Document, bool) {
	raw, err := c.rdb.Get(ctx, c.key(key)).Bytes()
	if err != nil {
		if !errors.Is(err, goredis.Nil) {
			c.log.Warn("document cache get failed", "key", key, "error", err)
		}
		return nil, false
	}
	doc, err := c.decode(raw)
	if err != nil {
		c.log.Warn("document cache entry unreadable", "key", key, "error", err)
		_ = c.rdb.Del(ctx, c.key(key)).Err()
		return nil, false
	}
	return doc, true
}

func (c *redisCache) Generation(ctx context.Context, key string) uint64 {
	gen, err := c.rdb.Get(ctx, c.genKey(key)).Uint64()
	switch {
	case err == nil:
		return gen
	case errors.Is(err, goredis.Nil):
		return 0
	default:
		c.log.Warn("document cache generation read failed", "key", key, "error", err)
		return NoGeneration
	}
}

// Fill writes doc under WATCH on the generation key, so an eviction committed
// by another instance between the check and the write aborts it.
func (c *redisCache) Fill(ctx context.Context, key string, gen uint64, doc *domainagg.Document) {
	if doc == nil || gen == NoGeneration {
		return
	}
	raw, err := encodeDocument(doc)
	if err != nil {
		c.log.Warn("document cache encode failed", "key", key, "error", err)
		return
	}
	genKey := c.genKey(key)
	err = c.rdb.Watch(ctx, func(tx *goredis.Tx) error {
		cur, err := tx.Get(ctx, genKey).Uint64()
		if errors.Is(err, goredis.Nil) {
			cur, err = 0, nil
		}
		if err != nil {
			return err
		}
		if cur != gen {
			return errStaleFill
		}
		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.Set(ctx, c.key(key), raw, c.ttl)
			return nil
		})
		return err
	}, genKey)
	switch {
	case err == nil:
	case errors.Is(err, errStaleFill), errors.Is(err, goredis.TxFailedErr):
		c.log.Debug("document cache fill skipped", "key", key)
	default:
		c.log.Warn("document cache set failed", "key", key, "error", err)
	}
}

func (c *redisCache) Delete(ctx context.Context, key string) {
	genKey := c.genKey(key)
	pipe := c.rdb.TxPipeline()
	pipe.Incr(ctx, genKey)
	pipe.Expire(ctx, genKey, c.ttl+generationGrace)
	pipe.Del(ctx, c.key(key))
	if _, err := pipe.Exec(ctx); err != nil {
		c.log.Warn("document cache delete failed", "key", key, "error", err)
	}
}

func encodeDocument(doc *domainagg.Document) ([]byte, error) {
	return json.Marshal(cachedDocument{
		Type:        doc.Type,
		ID:          doc.ID,
		PropertyID:  doc.PropertyID,
		CreatedAt:   doc.CreatedAt,
		UpdatedAt:   doc.UpdatedAt,
		Fields:      doc.Fields,
		Singletons:  doc.Singletons,
		Collections: doc.Collections,
		Loaded:      doc.Loaded(),
	})
}

func (c *redisCache) decode(raw []byte) (*domainagg.Document, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var cd cachedDocument
	if err := dec.Decode(&cd); err != nil {
		return nil, err
	}
	t, ok := c.reg.Lookup(cd.Type)
	if !ok {
		return nil, fmt.Errorf("unknown type %q", cd.Type)
	}
	doc := domainagg.NewDocument(t.Name)
	doc.ID = cd.ID
	doc.PropertyID = cd.PropertyID
	doc.CreatedAt = cd.CreatedAt.UTC()
	doc.UpdatedAt = cd.UpdatedAt.UTC()

	fields, err := retype(t.Root, cd.Fields)
	if err != nil {
		return nil, err
	}
	doc.Fields = fields

	for _, name := range cd.Loaded {
		s, ok := t.Slot(name)
		if !ok {
			return nil, fmt.Errorf("unknown slot %q", name)
		}
		switch s.Kind {
		case domainagg.SlotSingleton:
			var row map[string]any
			if raw := cd.Singletons[name]; raw != nil {
				if row, err = retype(s.Table, raw); err != nil {
					return nil, err
				}
			}
			doc.Singletons[name] = row
		case domainagg.SlotCollection:
			items := make([]map[string]any, 0, len(cd.Collections[name]))
			for _, raw := range cd.Collections[name] {
				row, err := retype(s.Table, raw)
				if err != nil {
					return nil, err
				}
				items = append(items, row)
			}
			doc.Collections[name] = items
		}
		doc.MarkLoaded(name)
	}
	return doc, nil
}

// retype restores canonical column values from their JSON form.
func retype(tbl *domainagg.Table, in map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(in))
	for k, v := range in {
		col, ok := tbl.Column(k)
		if !ok {
			return nil, fmt.Errorf("%s has no column %s", tbl.Name, k)
		}
		if v == nil {
			out[k] = nil
			continue
		}
		cv, err := col.Coerce(v)
		if err != nil {
			return nil, err
		}
		out[k] = cv
	}
	return out, nil
}

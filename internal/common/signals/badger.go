package signals

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/dgraph-io/badger/v4"

	"wizkid-search/internal/common/logger"
	"wizkid-search/internal/models"
)

const maxTxnRetries = 5

// BadgerStore is an embedded Store for single-node deployments.
type BadgerStore struct {
	db *badger.DB
}

type badgerLogger struct {
	log logger.Logger
}

var _ badger.Logger = (*badgerLogger)(nil)

func (b *badgerLogger) Errorf(msg string, args ...interface{}) {
	b.log.Error(strings.TrimSpace(fmt.Sprintf(msg, args...)), nil)
}

func (b *badgerLogger) Warningf(msg string, args ...interface{}) {
	b.log.Warn(strings.TrimSpace(fmt.Sprintf(msg, args...)), nil)
}

func (b *badgerLogger) Infof(msg string, args ...interface{}) {
	b.log.Debug(strings.TrimSpace(fmt.Sprintf(msg, args...)), nil)
}

func (b *badgerLogger) Debugf(msg string, args ...interface{}) {
	b.log.Debug(strings.TrimSpace(fmt.Sprintf(msg, args...)), nil)
}

// OpenBadger opens (creating if needed) a store at path. An empty path
// opens an in-memory store.
func OpenBadger(path string, log logger.Logger) (*BadgerStore, error) {
	var opts badger.Options
	if path == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(path, 0o755); err != nil {
			return nil, fmt.Errorf("create signal store dir: %w", err)
		}
		opts = badger.DefaultOptions(path)
	}
	opts.Logger = &badgerLogger{log: logger.Component(log, "badger")}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open signal store: %w", err)
	}
	return &BadgerStore{db: db}, nil
}

func domainDBKey(host string) []byte { return []byte("dom:" + Host(host)) }

func entityPrefix(query, kind string) []byte {
	return []byte(EntityKey(query, kind) + ":")
}

func (s *BadgerStore) Counters(_ context.Context, hosts []string) (map[string]DomainCounters, error) {
	hosts = uniqueHosts(hosts)
	out := make(map[string]DomainCounters, len(hosts))
	err := s.db.View(func(txn *badger.Txn) error {
		for _, h := range hosts {
			c, found, err := readCounters(txn, h)
			if err != nil {
				return err
			}
			if found {
				out[h] = c
			}
		}
		return nil
	})
	if err != nil {
		return out, fmt.Errorf("read domain counters: %w", err)
	}
	return out, nil
}

func readCounters(txn *badger.Txn, host string) (DomainCounters, bool, error) {
	var c DomainCounters
	item, err := txn.Get(domainDBKey(host))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return c, false, nil
	}
	if err != nil {
		return c, false, err
	}
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &c)
	})
	return c, err == nil, err
}

func (s *BadgerStore) RecordShown(_ context.Context, hosts ...string) error {
	hosts = uniqueHosts(hosts)
	if len(hosts) == 0 {
		return nil
	}
	return s.update(func(txn *badger.Txn) error {
		for _, h := range hosts {
			if err := bumpCounters(txn, h, 1, 0); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *BadgerStore) RecordClicked(_ context.Context, host string) error {
	if Host(host) == "" {
		return nil
	}
	return s.update(func(txn *badger.Txn) error {
		return bumpCounters(txn, host, 0, 1)
	})
}

func bumpCounters(txn *badger.Txn, host string, shows, clicks int64) error {
	c, _, err := readCounters(txn, host)
	if err != nil {
		return err
	}
	c.Shows += shows
	c.Clicks += clicks
	data, err := json.Marshal(c)
	if err != nil {
		return err
	}
	return txn.Set(domainDBKey(host), data)
}

func (s *BadgerStore) LoadBias(_ context.Context, query string) (models.Bias, error) {
	bias := models.NewBias()
	err := s.db.View(func(txn *badger.Txn) error {
		for _, kind := range []string{kindPrefer, kindAvoid} {
			dst := bias.Prefer
			if kind == kindAvoid {
				dst = bias.Avoid
			}
			prefix := entityPrefix(query, kind)
			opts := badger.DefaultIteratorOptions
			opts.Prefix = prefix
			it := txn.NewIterator(opts)
			for it.Rewind(); it.Valid(); it.Next() {
				item := it.Item()
				name := string(item.Key()[len(prefix):])
				err := item.Value(func(val []byte) error {
					score, err := strconv.ParseFloat(string(val), 64)
					if err != nil {
						return err
					}
					dst[name] = score
					return nil
				})
				if err != nil {
					it.Close()
					return err
				}
			}
			it.Close()
		}
		return nil
	})
	if err != nil {
		return models.NewBias(), fmt.Errorf("load bias: %w", err)
	}
	return bias, nil
}

func (s *BadgerStore) Prefer(_ context.Context, query, name string) error {
	return s.incr(query, kindPrefer, name)
}

func (s *BadgerStore) Avoid(_ context.Context, query, name string) error {
	return s.incr(query, kindAvoid, name)
}

func (s *BadgerStore) incr(query, kind, name string) error {
	key := append(entityPrefix(query, kind), name...)
	return s.update(func(txn *badger.Txn) error {
		score := 0.0
		item, err := txn.Get(key)
		switch {
		case errors.Is(err, badger.ErrKeyNotFound):
		case err != nil:
			return err
		default:
			if err := item.Value(func(val []byte) error {
				score, err = strconv.ParseFloat(string(val), 64)
				return err
			}); err != nil {
				return err
			}
		}
		return txn.Set(key, []byte(strconv.FormatFloat(score+1, 'f', -1, 64)))
	})
}

// update retries on write conflicts between concurrent increments.
func (s *BadgerStore) update(fn func(txn *badger.Txn) error) error {
	var err error
	for i := 0; i < maxTxnRetries; i++ {
		err = s.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			break
		}
	}
	if err != nil {
		return fmt.Errorf("signal store write: %w", err)
	}
	return nil
}

func (s *BadgerStore) Close() error {
	return s.db.Close()
}

// Package bolt is a KeyframeStore backed by a bbolt database.
//
// Each visualization instance gets a bucket, and each keyframe is
// stored as JSON under "morph/state".
package bolt

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/Comcast/morphs/core"
	"github.com/Comcast/morphs/storage"

	bolt "go.etcd.io/bbolt"
)

type Storage struct {
	Debug    bool
	filename string
	db       *bolt.DB
}

func NewStorage(filename string) (*Storage, error) {
	return &Storage{
		filename: filename,
	}, nil
}

func (s *Storage) Open() error {
	opts := &bolt.Options{
		Timeout: time.Second,
	}

	db, err := bolt.Open(s.filename, 0644, opts)
	if err != nil {
		return err
	}
	s.db = db
	return nil
}

func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) logf(format string, args ...interface{}) {
	if s.Debug {
		log.Printf("BoltDB Storage."+format, args...)
	}
}

func (s *Storage) SaveKeyframe(ctx context.Context, instance, morph, state string, spec core.VisSpec) error {
	s.logf("SaveKeyframe %s %s %s", instance, morph, state)

	js, err := json.Marshal(&spec)
	if err != nil {
		return err
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(instance))
		if err != nil {
			return err
		}
		return b.Put([]byte(storage.Key(morph, state)), js)
	})
}

func (s *Storage) LoadKeyframe(ctx context.Context, instance, morph, state string) (core.VisSpec, error) {
	var spec core.VisSpec
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(instance))
		if b == nil {
			return nil
		}
		bs := b.Get([]byte(storage.Key(morph, state)))
		if bs == nil {
			return nil
		}
		return json.Unmarshal(bs, &spec)
	})
	if err != nil {
		return nil, err
	}
	s.logf("LoadKeyframe %s %s %s found %v", instance, morph, state, spec != nil)
	return spec, nil
}

func (s *Storage) DeleteKeyframes(ctx context.Context, instance string) error {
	s.logf("DeleteKeyframes %s", instance)
	return s.db.Update(func(tx *bolt.Tx) error {
		if tx.Bucket([]byte(instance)) == nil {
			return nil
		}
		return tx.DeleteBucket([]byte(instance))
	})
}

// Instances lists the instances that have stored keyframes.
func (s *Storage) Instances(ctx context.Context) ([]string, error) {
	var acc []string
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.ForEach(func(name []byte, _ *bolt.Bucket) error {
			acc = append(acc, string(name))
			return nil
		})
	})
	return acc, err
}

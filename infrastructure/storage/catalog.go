// Package storage provides the BadgerDB-backed channel catalog.
package storage

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"

	"chat-hub/domain"
	"chat-hub/errors"
)

const channelPrefix = "channel:record:"

// ChannelCatalog is the durable store of channel records. Ids come from a
// persisted Badger sequence shifted by one, so the first channel ever
// created gets id 1 and zero never names a record.
type ChannelCatalog struct {
	db  *badger.DB
	seq *badger.Sequence
	log *slog.Logger
}

func NewChannelCatalog(db *badger.DB, log *slog.Logger) (*ChannelCatalog, error) {
	seq, err := db.GetSequence([]byte("channel:seq"), 16)
	if err != nil {
		return nil, fmt.Errorf("channel id sequence: %w", err)
	}
	return &ChannelCatalog{db: db, seq: seq, log: log}, nil
}

// Close releases the unused tail of the id sequence back to Badger.
func (c *ChannelCatalog) Close() error {
	return c.seq.Release()
}

func (c *ChannelCatalog) Create(title string) (domain.Channel, error) {
	n, err := c.seq.Next()
	if err != nil {
		return domain.Channel{}, fmt.Errorf("allocate channel id: %w", err)
	}
	channel := domain.Channel{ID: domain.ChannelID(n) + 1, Title: title}

	data, err := json.Marshal(channel)
	if err != nil {
		return domain.Channel{}, err
	}
	err = c.db.Update(func(txn *badger.Txn) error {
		return txn.Set(channelKey(channel.ID), data)
	})
	if err != nil {
		return domain.Channel{}, fmt.Errorf("store channel %d: %w", channel.ID, err)
	}

	c.log.Debug("channel record created", "id", channel.ID, "title", channel.Title)
	return channel, nil
}

func (c *ChannelCatalog) Get(id domain.ChannelID) (domain.Channel, error) {
	var channel domain.Channel
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(channelKey(id))
		if err != nil {
			return err
		}
		return item.Value(func(v []byte) error {
			return json.Unmarshal(v, &channel)
		})
	})
	if stderrors.Is(err, badger.ErrKeyNotFound) {
		return domain.Channel{}, fmt.Errorf("channel %d: %w", id, errors.ErrChannelNotFound)
	}
	if err != nil {
		return domain.Channel{}, fmt.Errorf("fetch channel %d: %w", id, err)
	}
	return channel, nil
}

func (c *ChannelCatalog) Delete(id domain.ChannelID) error {
	err := c.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(channelKey(id)); err != nil {
			return err
		}
		return txn.Delete(channelKey(id))
	})
	if stderrors.Is(err, badger.ErrKeyNotFound) {
		return fmt.Errorf("channel %d: %w", id, errors.ErrChannelNotFound)
	}
	if err != nil {
		return fmt.Errorf("delete channel %d: %w", id, err)
	}
	return nil
}

// List returns all channel records ordered by id; the zero-padded key
// layout makes Badger's lexicographic iteration numeric.
func (c *ChannelCatalog) List() ([]domain.Channel, error) {
	var channels []domain.Channel
	err := c.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(channelPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(v []byte) error {
				var channel domain.Channel
				if err := json.Unmarshal(v, &channel); err != nil {
					return err
				}
				channels = append(channels, channel)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list channels: %w", err)
	}
	return channels, nil
}

func channelKey(id domain.ChannelID) []byte {
	return []byte(fmt.Sprintf("%s%020d", channelPrefix, id))
}

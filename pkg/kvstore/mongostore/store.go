// Package mongostore implements kvstore.Store on MongoDB.
//
// Objects are stored one document per key in the "objects" collection, with
// the key under "_key" and every field as a top-level property. Sorted set
// members live in "sorted_sets" as {_key, value, score} documents.
// Dots are not allowed in MongoDB field names, so they are replaced with
// U+FF0E in field names, as the host forum's own mongo adapter does.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/dmitrymomot/ssovk/pkg/kvstore"
)

const (
	objectsCollection    = "objects"
	sortedSetsCollection = "sorted_sets"
)

// Ensure Store implements kvstore.Store.
var _ kvstore.Store = (*Store)(nil)

// Store is a kvstore.Store backed by a MongoDB database.
type Store struct {
	db      *mongo.Database
	objects *mongo.Collection
	zsets   *mongo.Collection
}

// New wraps db. Call EnsureIndexes once at startup.
func New(db *mongo.Database) *Store {
	return &Store{
		db:      db,
		objects: db.Collection(objectsCollection),
		zsets:   db.Collection(sortedSetsCollection),
	}
}

// EnsureIndexes creates the unique indexes both collections rely on.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	if _, err := s.objects.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "_key", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		return fmt.Errorf("create objects index: %w", err)
	}
	if _, err := s.zsets.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "_key", Value: 1}, {Key: "value", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		return fmt.Errorf("create sorted_sets index: %w", err)
	}
	return nil
}

func (s *Store) GetObjectField(ctx context.Context, key, field string) (string, error) {
	if key == "" {
		return "", kvstore.ErrEmptyKey
	}

	f := encodeField(field)
	var doc bson.M
	err := s.objects.FindOne(ctx,
		bson.M{"_key": key, f: bson.M{"$exists": true}},
		options.FindOne().SetProjection(bson.M{"_id": 0, f: 1}),
	).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return "", kvstore.ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return stringify(doc[f])
}

func (s *Store) GetObject(ctx context.Context, key string) (map[string]string, error) {
	if key == "" {
		return nil, kvstore.ErrEmptyKey
	}

	var doc bson.M
	err := s.objects.FindOne(ctx, bson.M{"_key": key},
		options.FindOne().SetProjection(bson.M{"_id": 0, "_key": 0}),
	).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, err
	}

	result := make(map[string]string, len(doc))
	for f, v := range doc {
		value, err := stringify(v)
		if err != nil {
			return nil, err
		}
		result[decodeField(f)] = value
	}
	return result, nil
}

func (s *Store) SetObjectField(ctx context.Context, key, field, value string) error {
	return s.SetObject(ctx, key, map[string]string{field: value})
}

func (s *Store) SetObject(ctx context.Context, key string, fields map[string]string) error {
	if key == "" {
		return kvstore.ErrEmptyKey
	}
	if len(fields) == 0 {
		return nil
	}

	set := bson.M{}
	for f, v := range fields {
		set[encodeField(f)] = v
	}
	_, err := s.objects.UpdateOne(ctx, bson.M{"_key": key}, bson.M{"$set": set},
		options.UpdateOne().SetUpsert(true))
	return err
}

func (s *Store) DeleteObjectField(ctx context.Context, key, field string) error {
	if key == "" {
		return kvstore.ErrEmptyKey
	}
	_, err := s.objects.UpdateOne(ctx, bson.M{"_key": key},
		bson.M{"$unset": bson.M{encodeField(field): ""}})
	return err
}

func (s *Store) PopObjectField(ctx context.Context, key, field string) (string, error) {
	if key == "" {
		return "", kvstore.ErrEmptyKey
	}

	f := encodeField(field)
	var doc bson.M
	err := s.objects.FindOneAndUpdate(ctx,
		bson.M{"_key": key, f: bson.M{"$exists": true}},
		bson.M{"$unset": bson.M{f: ""}},
		options.FindOneAndUpdate().
			SetReturnDocument(options.Before).
			SetProjection(bson.M{"_id": 0, f: 1}),
	).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return "", kvstore.ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return stringify(doc[f])
}

// IncrObjectField uses $inc, so the counter is kept as a numeric BSON value.
func (s *Store) IncrObjectField(ctx context.Context, key, field string) (int64, error) {
	if key == "" {
		return 0, kvstore.ErrEmptyKey
	}

	f := encodeField(field)
	var doc bson.M
	err := s.objects.FindOneAndUpdate(ctx,
		bson.M{"_key": key},
		bson.M{"$inc": bson.M{f: int64(1)}},
		options.FindOneAndUpdate().
			SetUpsert(true).
			SetReturnDocument(options.After).
			SetProjection(bson.M{"_id": 0, f: 1}),
	).Decode(&doc)
	if err != nil {
		if strings.Contains(err.Error(), "non-numeric") {
			return 0, errors.Join(kvstore.ErrNotInteger, err)
		}
		return 0, err
	}

	raw, err := stringify(doc[f])
	if err != nil {
		return 0, err
	}
	return strconv.ParseInt(raw, 10, 64)
}

func (s *Store) SortedSetAdd(ctx context.Context, set string, score float64, member string) error {
	if set == "" {
		return kvstore.ErrEmptyKey
	}
	_, err := s.zsets.UpdateOne(ctx,
		bson.M{"_key": set, "value": member},
		bson.M{"$set": bson.M{"score": score}},
		options.UpdateOne().SetUpsert(true))
	return err
}

func (s *Store) SortedSetRemove(ctx context.Context, set, member string) error {
	if set == "" {
		return kvstore.ErrEmptyKey
	}
	_, err := s.zsets.DeleteOne(ctx, bson.M{"_key": set, "value": member})
	return err
}

func (s *Store) IsSortedSetMember(ctx context.Context, set, member string) (bool, error) {
	if set == "" {
		return false, kvstore.ErrEmptyKey
	}
	n, err := s.zsets.CountDocuments(ctx, bson.M{"_key": set, "value": member})
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Healthcheck pings the server.
func (s *Store) Healthcheck(ctx context.Context) error {
	if err := s.db.Client().Ping(ctx, nil); err != nil {
		return errors.Join(ErrHealthcheckFailed, err)
	}
	return nil
}

func encodeField(field string) string {
	return strings.ReplaceAll(field, ".", "．")
}

func decodeField(field string) string {
	return strings.ReplaceAll(field, "．", ".")
}

func stringify(v any) (string, error) {
	switch val := v.(type) {
	case string:
		return val, nil
	case int32:
		return strconv.FormatInt(int64(val), 10), nil
	case int64:
		return strconv.FormatInt(val, 10), nil
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), nil
	case bool:
		return strconv.FormatBool(val), nil
	default:
		return "", fmt.Errorf("%w: %T", ErrUnexpectedValueType, v)
	}
}

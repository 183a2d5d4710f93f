// Package memory is an in-process record store with the same semantics as
// the DynamoDB table: typed updates, conditions, TTL expiry and ALL_OLD
// deletes. It backs local runs and engine tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/JayangaVLiyanage/SpeechGenAI-AWS-Lambda/internal/domain"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Op names a store call for fault injection.
type Op string

const (
	OpGet    Op = "get"
	OpQuery  Op = "query"
	OpPut    Op = "put"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// FaultFunc may return an error to fail a call before it touches state.
type FaultFunc func(op Op, key domain.Key) error

type item = map[string]types.AttributeValue

// Store is safe for concurrent use.
type Store struct {
	mu    sync.Mutex
	items map[domain.Key]item
	now   func() time.Time
	fault FaultFunc
}

func NewStore() *Store {
	return &Store{items: make(map[domain.Key]item), now: time.Now}
}

// SetClock replaces the clock used for timestamps and TTL expiry.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// SetFault installs fn; nil clears it.
func (s *Store) SetFault(fn FaultFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fault = fn
}

func (s *Store) Get(_ context.Context, key domain.Key, out any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(OpGet, key); err != nil {
		return err
	}
	it, ok := s.live(key)
	if !ok {
		return fmt.Errorf("item %s not found: %w", key, domain.ErrNotFound)
	}
	if err := attributevalue.UnmarshalMap(it, out); err != nil {
		return fmt.Errorf("unmarshal %s: %w: %w", key, domain.ErrStore, err)
	}
	return nil
}

func (s *Store) Query(_ context.Context, pk, prefix string, out any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(OpQuery, domain.Key{PK: pk, SK: prefix}); err != nil {
		return err
	}
	var keys []domain.Key
	for k := range s.items {
		if k.PK == pk && strings.HasPrefix(k.SK, prefix) {
			if _, ok := s.live(k); ok {
				keys = append(keys, k)
			}
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].SK < keys[j].SK })
	list := make([]item, len(keys))
	for i, k := range keys {
		list[i] = s.items[k]
	}
	if err := attributevalue.UnmarshalListOfMaps(list, out); err != nil {
		return fmt.Errorf("unmarshal query %s/%s*: %w: %w", pk, prefix, domain.ErrStore, err)
	}
	return nil
}

func (s *Store) Put(_ context.Context, e domain.Entity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	h := e.Header()
	if err := s.check(OpPut, h.Key()); err != nil {
		return err
	}
	h.Stamp(s.now())
	av, err := attributevalue.MarshalMap(e)
	if err != nil {
		return fmt.Errorf("marshal %s: %w: %w", h.Key(), domain.ErrStore, err)
	}
	s.items[h.Key()] = av
	return nil
}

func (s *Store) Update(_ context.Context, key domain.Key, u *domain.Update) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(OpUpdate, key); err != nil {
		return err
	}
	if u == nil || u.Empty() {
		return fmt.Errorf("update %s: no fields to update", key)
	}
	current, exists := s.live(key)
	for _, c := range u.Conditions() {
		if !holds(c, current, exists) {
			return fmt.Errorf("update %s: %w", key, domain.ErrConflict)
		}
	}
	next := item{
		"PK": &types.AttributeValueMemberS{Value: key.PK},
		"SK": &types.AttributeValueMemberS{Value: key.SK},
	}
	if exists {
		next = cloneMap(current)
	}
	if err := apply(next, u); err != nil {
		return fmt.Errorf("update %s: %w: %w", key, domain.ErrStore, err)
	}
	next["UpdatedAt"] = &types.AttributeValueMemberS{Value: domain.Timestamp(s.now())}
	s.items[key] = next
	return nil
}

func (s *Store) Delete(_ context.Context, key domain.Key) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(OpDelete, key); err != nil {
		return false, err
	}
	_, ok := s.live(key)
	delete(s.items, key)
	return ok, nil
}

// Len counts live items, for tests and the CLI.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for k := range s.items {
		if _, ok := s.live(k); ok {
			n++
		}
	}
	return n
}

func (s *Store) check(op Op, key domain.Key) error {
	if s.fault == nil {
		return nil
	}
	if err := s.fault(op, key); err != nil {
		return fmt.Errorf("%s %s: %w: %w", op, key, domain.ErrStore, err)
	}
	return nil
}

// live returns the item unless its TTL has passed.
func (s *Store) live(key domain.Key) (item, bool) {
	it, ok := s.items[key]
	if !ok {
		return nil, false
	}
	if ttl, ok := it["TTL"].(*types.AttributeValueMemberN); ok {
		if sec, err := strconv.ParseInt(ttl.Value, 10, 64); err == nil && sec > 0 && sec <= s.now().Unix() {
			return nil, false
		}
	}
	return it, true
}

func holds(c domain.Condition, it item, exists bool) bool {
	switch c.Op {
	case domain.CondItemExists:
		return exists
	case domain.CondGreaterThan:
		if !exists {
			return false
		}
		n, ok := number(lookup(it, c.Field.Path()))
		return ok && n > c.Value
	}
	return false
}

func apply(it item, u *domain.Update) error {
	for _, a := range u.Actions() {
		path := a.Field.Path()
		if len(path) == 0 {
			return fmt.Errorf("unknown field %d", a.Field)
		}
		parent, err := parentOf(it, path)
		if err != nil {
			return err
		}
		leaf := path[len(path)-1]
		cur, exists := parent[leaf]

		switch a.Op {
		case domain.OpSet:
			av, err := attributevalue.Marshal(a.Value)
			if err != nil {
				return err
			}
			parent[leaf] = av
		case domain.OpSetIfAbsent:
			if exists {
				continue
			}
			av, err := attributevalue.Marshal(a.Value)
			if err != nil {
				return err
			}
			parent[leaf] = av
		case domain.OpAppend:
			av, err := attributevalue.Marshal(a.Value)
			if err != nil {
				return err
			}
			add, ok := av.(*types.AttributeValueMemberL)
			if !ok {
				return fmt.Errorf("append to %s: value is not a list", a.Field)
			}
			var base []types.AttributeValue
			if exists {
				l, ok := cur.(*types.AttributeValueMemberL)
				if !ok {
					return fmt.Errorf("append to %s: attribute is not a list", a.Field)
				}
				base = l.Value
			}
			merged := append(append([]types.AttributeValue{}, base...), add.Value...)
			parent[leaf] = &types.AttributeValueMemberL{Value: merged}
		case domain.OpAdd:
			delta, ok := a.Value.(int)
			if !ok {
				return fmt.Errorf("add to %s: delta must be int", a.Field)
			}
			n := 0
			if exists {
				if n, ok = number(cur); !ok {
					return fmt.Errorf("add to %s: attribute is not a number", a.Field)
				}
			}
			parent[leaf] = &types.AttributeValueMemberN{Value: strconv.Itoa(n + delta)}
		default:
			return fmt.Errorf("unsupported op %d", a.Op)
		}
	}
	return nil
}

// parentOf walks every segment but the last; intermediate maps must exist,
// as in a DynamoDB document path.
func parentOf(it item, path []string) (item, error) {
	cur := it
	for _, seg := range path[:len(path)-1] {
		m, ok := cur[seg].(*types.AttributeValueMemberM)
		if !ok {
			return nil, fmt.Errorf("document path %s is invalid", strings.Join(path, "."))
		}
		cur = m.Value
	}
	return cur, nil
}

func lookup(it item, path []string) types.AttributeValue {
	cur := it
	for i, seg := range path {
		av, ok := cur[seg]
		if !ok {
			return nil
		}
		if i == len(path)-1 {
			return av
		}
		m, ok := av.(*types.AttributeValueMemberM)
		if !ok {
			return nil
		}
		cur = m.Value
	}
	return nil
}

func number(av types.AttributeValue) (int, bool) {
	n, ok := av.(*types.AttributeValueMemberN)
	if !ok {
		return 0, false
	}
	v, err := strconv.Atoi(n.Value)
	return v, err == nil
}

func cloneMap(m item) item {
	out := make(item, len(m))
	for k, v := range m {
		out[k] = clone(v)
	}
	return out
}

func clone(av types.AttributeValue) types.AttributeValue {
	switch v := av.(type) {
	case *types.AttributeValueMemberM:
		return &types.AttributeValueMemberM{Value: cloneMap(v.Value)}
	case *types.AttributeValueMemberL:
		l := make([]types.AttributeValue, len(v.Value))
		for i, e := range v.Value {
			l[i] = clone(e)
		}
		return &types.AttributeValueMemberL{Value: l}
	default:
		return av
	}
}

// Package slotindex implements the optional secondary index from a
// cluster hash-slot to the set of keys currently assigned to it (§4.6's
// SlotIndex component). No third-party radix-tree library appears anywhere
// in the retrieval pack's actually-imported code (hashicorp/go-immutable-
// radix is only a transitive, never-imported dependency of
// ValentinKolb-dKV's go.mod), so this is a hand-rolled radix tree over the
// 14-bit slot space, in the same spirit as this engine's other core
// algorithms (Dict, ExpireSet) being purpose-built rather than imported.
package slotindex

import (
	"sync"

	"github.com/cespare/xxhash/v2"
)

// SlotCount mirrors the reference cluster's fixed 16384-slot keyspace.
const SlotCount = 16384

// HashSlot computes the slot a key belongs to. The reference implementation
// hashes only the part of the key between the first '{' and matching '}'
// when present (a "hash tag"), to let related keys share a slot; this
// behaviour is preserved here.
func HashSlot(key string) uint16 {
	tag := hashTag(key)
	return uint16(xxhash.Sum64String(tag) % SlotCount)
}

func hashTag(key string) string {
	start := -1
	for i := 0; i < len(key); i++ {
		if key[i] == '{' {
			start = i
			break
		}
	}
	if start == -1 {
		return key
	}
	for j := start + 1; j < len(key); j++ {
		if key[j] == '}' {
			if j == start+1 {
				return key
			}
			return key[start+1 : j]
		}
	}
	return key
}

// node is one level of the radix tree, branching on whole slot-path
// segments (here: the two bytes of the slot number, most significant
// first) down to a leaf holding the key set for that exact slot.
type node struct {
	children [256]*node
	keys     map[string]struct{}
}

func newNode() *node { return &node{} }

// SlotIndex maps cluster slots to the keys assigned to them, supporting
// O(1)-ish add/remove/lookup by walking two radix levels (high byte, low
// byte of the 14-bit slot number) and a full Rebuild from a key iterator.
// Nothing in the keyspace calls Rebuild; SwapDB and Move do not use it.
type SlotIndex struct {
	mu   sync.RWMutex
	root *node
	size int
}

// New returns an empty SlotIndex.
func New() *SlotIndex {
	return &SlotIndex{root: newNode()}
}

func (s *SlotIndex) leafFor(slot uint16, create bool) *node {
	hi, lo := byte(slot>>8), byte(slot&0xff)
	cur := s.root
	if cur.children[hi] == nil {
		if !create {
			return nil
		}
		cur.children[hi] = newNode()
	}
	cur = cur.children[hi]
	if cur.children[lo] == nil {
		if !create {
			return nil
		}
		cur.children[lo] = newNode()
	}
	leaf := cur.children[lo]
	if leaf.keys == nil && create {
		leaf.keys = make(map[string]struct{})
	}
	return leaf
}

// Add assigns key to its hash slot.
func (s *SlotIndex) Add(key string) {
	slot := HashSlot(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	leaf := s.leafFor(slot, true)
	if _, exists := leaf.keys[key]; !exists {
		leaf.keys[key] = struct{}{}
		s.size++
	}
}

// Del removes key from its hash slot's set.
func (s *SlotIndex) Del(key string) {
	slot := HashSlot(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	leaf := s.leafFor(slot, false)
	if leaf == nil || leaf.keys == nil {
		return
	}
	if _, exists := leaf.keys[key]; exists {
		delete(leaf.keys, key)
		s.size--
	}
}

// KeysInSlot returns every key currently assigned to slot.
func (s *SlotIndex) KeysInSlot(slot uint16) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	leaf := s.leafFor(slot, false)
	if leaf == nil {
		return nil
	}
	out := make([]string, 0, len(leaf.keys))
	for k := range leaf.keys {
		out = append(out, k)
	}
	return out
}

// CountInSlot returns the number of keys assigned to slot without
// allocating a result slice.
func (s *SlotIndex) CountInSlot(slot uint16) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	leaf := s.leafFor(slot, false)
	if leaf == nil {
		return 0
	}
	return len(leaf.keys)
}

// Size returns the total number of indexed keys.
func (s *SlotIndex) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.size
}

// Rebuild discards the current index and repopulates it from keys. It has
// no caller in the keyspace: SwapDB and Move do not rebuild the index.
func (s *SlotIndex) Rebuild(keys func(yield func(key string) bool)) {
	s.mu.Lock()
	s.root = newNode()
	s.size = 0
	s.mu.Unlock()

	keys(func(key string) bool {
		s.Add(key)
		return true
	})
}

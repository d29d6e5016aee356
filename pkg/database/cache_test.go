package database

import "testing"

func TestLRUCacheEvictsOldest(t *testing.T) {
	c := newLRUCache(2)
	c.Put("a", 1)
	c.Put("b", 2)

	// touch "a" so "b" becomes the oldest
	if v, ok := c.Get("a"); !ok || v.(int) != 1 {
		t.Fatalf("Get(a) = %v, %v", v, ok)
	}

	c.Put("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Error("expected b to be evicted")
	}
	if _, ok := c.Get("a"); !ok {
		t.Error("expected a to survive")
	}
	if c.Len() != 2 {
		t.Errorf("Len() = %d, want 2", c.Len())
	}
}

func TestLRUCachePutReplaces(t *testing.T) {
	c := newLRUCache(10)
	c.Put("k", "old")
	c.Put("k", "new")

	v, _ := c.Get("k")
	if v.(string) != "new" {
		t.Errorf("Get(k) = %v, want new", v)
	}
	if c.Len() != 1 {
		t.Errorf("Len() = %d, want 1", c.Len())
	}
}

func TestLRUCacheRemoveAndPurge(t *testing.T) {
	c := newLRUCache(0)
	for _, k := range []string{"a", "b", "c"} {
		c.Put(k, k)
	}

	c.Remove("b")
	if _, ok := c.Get("b"); ok {
		t.Error("b should be removed")
	}

	c.Purge()
	if c.Len() != 0 {
		t.Errorf("Len() after Purge = %d", c.Len())
	}
}

func TestGenerateCacheKeyIsDeterministic(t *testing.T) {
	dm := &DataManager[struct{}]{collectionName: "users"}

	a := dm.generateCacheKey(map[string]interface{}{"guildId": "1", "userId": "2"})
	b := dm.generateCacheKey(map[string]interface{}{"userId": "2", "guildId": "1"})
	if a != b {
		t.Errorf("keys differ: %q vs %q", a, b)
	}
	if a != "users:{guildId=1,userId=2}" {
		t.Errorf("unexpected key %q", a)
	}
}

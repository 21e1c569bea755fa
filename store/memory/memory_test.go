package memory_test

import (
	"testing"

	"github.com/tjpa/sgf-engine/store"
	"github.com/tjpa/sgf-engine/store/memory"
	"github.com/tjpa/sgf-engine/store/storetest"
)

func TestMemoryStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		return memory.New()
	})
}

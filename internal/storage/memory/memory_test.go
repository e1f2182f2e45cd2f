package memory

import (
	"testing"

	"github.com/julianstephens/identityforge/internal/storage"
	"github.com/julianstephens/identityforge/internal/storage/storagetest"
)

func TestStore(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Provider {
		return New()
	})
}

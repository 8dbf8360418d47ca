package memory

import (
	"testing"

	"github.com/xenking/stand-kart/internal/storage/storagetest"
)

func TestStorage(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storagetest.Store {
		products := NewProductRepository()
		return storagetest.Store{
			Orders:   NewOrderRepository(products),
			Products: products,
			Accounts: NewAccountRepository(),
		}
	})
}

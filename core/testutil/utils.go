package testutil

import (
	"os"
	"time"

	"github.com/defistack/automate/model"
	"github.com/defistack/automate/pkg/logger"
	"github.com/defistack/automate/storage"
)

// Shortcut to initialize a storage at a temp path, panic if we cannot create db
func TestMustDB() storage.Storage {
	dir, err := os.MkdirTemp("", "automatetest")
	if err != nil {
		panic(err)
	}

	db, err := storage.NewWithPath(dir)
	if err != nil {
		panic(err)
	}
	return db
}

func GetLogger() logger.Logger {
	lg, err := logger.New("development")
	if err != nil {
		panic(err)
	}
	return lg
}

func TestWallet() *model.Wallet {
	return &model.Wallet{
		ID:      "wallet-1",
		User:    "user-1",
		Network: "1",
		Address: "0xd7050816337a3f8f690f8083b5ff8019d50c0e50",
	}
}

func TestTrigger(walletID string) *model.Trigger {
	return &model.Trigger{
		ID:        model.GenerateID(),
		Wallet:    walletID,
		Type:      "contractInteraction",
		Name:      "harvest when ready",
		Active:    true,
		CreatedAt: time.Now(),
	}
}

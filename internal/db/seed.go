package db

import (
	"fmt"
	"log"
	"math/rand"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SeedTestData resets the database and populates it with demo data.
//
// Behavior:
//  1. Clears all engine tables.
//  2. Creates 20 users with hashed passwords.
//  3. Generates views (fame rating kept consistent), one-way likes, and
//     every 3rd like becomes mutual: pair + match rows plus a short
//     seeded conversation with correct sequence counters.
//
// Compatible with both MySQL and SQLite (AUTO_INCREMENT reset skipped for SQLite).
func SeedTestData(db *gorm.DB) error {
	r := rand.New(rand.NewSource(time.Now().UnixNano()))

	// --- Fresh start ---
	for _, table := range []string{"messages", "matches", "likes", "pairs", "views", "users"} {
		if err := db.Exec("DELETE FROM " + table).Error; err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	switch db.Dialector.Name() {
	case "mysql":
		for _, table := range []string{"messages", "matches", "views", "users"} {
			db.Exec("ALTER TABLE " + table + " AUTO_INCREMENT = 1")
		}
	case "sqlite":
		db.Exec("DELETE FROM sqlite_sequence WHERE name IN ('messages', 'matches', 'views', 'users')")
	}

	log.Println("Cleared existing data")

	// --- Seed Users ---
	for i := 1; i <= 20; i++ {
		hash, err := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("failed to hash password: %w", err)
		}

		user := User{
			Username:     fmt.Sprintf("user%d", i),
			Email:        fmt.Sprintf("user%d@example.com", i),
			PasswordHash: string(hash),
			Verified:     i%4 != 0,
			Active:       true,
			LastLoginAt:  time.Now().Add(-time.Duration(r.Intn(500)) * time.Hour),
		}
		if err := db.Create(&user).Error; err != nil {
			return fmt.Errorf("failed to seed user: %w", err)
		}
	}
	log.Println("Seeded 20 users.")

	// --- Seed Views ---
	for viewer := uint64(1); viewer <= 20; viewer++ {
		for j := 0; j < 8; j++ {
			viewed := uint64(r.Intn(20) + 1)
			if viewed == viewer {
				continue
			}
			if err := db.Create(&View{ViewerID: viewer, ViewedID: viewed}).Error; err != nil {
				return fmt.Errorf("failed to seed view: %w", err)
			}
			if err := db.Model(&User{}).Where("id = ?", viewed).
				UpdateColumn("fame_rating", gorm.Expr("fame_rating + 1")).Error; err != nil {
				return fmt.Errorf("failed to bump fame: %w", err)
			}
		}
	}

	// --- Seed Likes / Matches / Messages ---
	counter := 0
	for liker := uint64(1); liker <= 20; liker++ {
		for j := 0; j < 6; j++ {
			liked := uint64(r.Intn(20) + 1)
			if liked == liker {
				continue
			}

			if err := seedLike(db, liker, liked); err != nil {
				return err
			}

			// every 3rd like becomes mutual with a short conversation
			if counter%3 == 0 {
				if err := seedLike(db, liked, liker); err != nil {
					return err
				}
				if err := seedMatch(db, liker, liked); err != nil {
					return err
				}
			}
			counter++
		}
	}

	return nil
}

func seedLike(db *gorm.DB, liker, liked uint64) error {
	like := Like{LikerID: liker, LikedID: liked}
	res := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&like)
	if res.Error != nil {
		return fmt.Errorf("failed to seed like: %w", res.Error)
	}
	if res.RowsAffected > 0 {
		return db.Model(&User{}).Where("id = ?", liked).
			UpdateColumn("fame_rating", gorm.Expr("fame_rating + 5")).Error
	}
	return nil
}

func seedMatch(db *gorm.DB, a, b uint64) error {
	low, high := PairKey(a, b)

	pair := Pair{LowID: low, HighID: high}
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&pair).Error; err != nil {
		return fmt.Errorf("failed to seed pair: %w", err)
	}

	match := Match{LowID: low, HighID: high}
	res := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&match)
	if res.Error != nil {
		return fmt.Errorf("failed to seed match: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil
	}

	// short conversation, sequence counters kept in sync on the pair row
	lines := []struct {
		sender, receiver uint64
		content          string
	}{
		{low, high, "hey!"},
		{high, low, "hi there"},
		{low, high, "how are you?"},
	}
	var seqLowHigh, seqHighLow uint64
	for _, line := range lines {
		seq := &seqLowHigh
		if line.sender == high {
			seq = &seqHighLow
		}
		*seq++
		msg := Message{
			SenderID:   line.sender,
			ReceiverID: line.receiver,
			Seq:        *seq,
			Content:    line.content,
		}
		if err := db.Create(&msg).Error; err != nil {
			return fmt.Errorf("failed to seed message: %w", err)
		}
	}

	return db.Model(&Pair{}).
		Where("low_id = ? AND high_id = ?", low, high).
		UpdateColumns(map[string]interface{}{
			"seq_low_high": seqLowHigh,
			"seq_high_low": seqHighLow,
		}).Error
}

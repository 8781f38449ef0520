package catalog

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

type SeedUser struct {
	Email    string
	Name     string
	Role     string
	Password string
}

var DefaultSeedUsers = []SeedUser{
	{Email: "student@utec.edu.pe", Name: "Student UTEC", Role: "student", Password: "password123"},
	{Email: "admin@utec.edu.pe", Name: "Admin UTEC", Role: "admin", Password: "admin123"},
}

var DefaultSeedPapers = []Paper{
	{
		ID:            "10.1038/nature14539",
		Title:         "Human-level control through deep reinforcement learning",
		Authors:       StringArray{"Volodymyr Mnih", "Koray Kavukcuoglu", "David Silver"},
		Abstract:      "The theory of reinforcement learning provides a normative account of agent behavior in uncertain environments...",
		Year:          2015,
		Journal:       "Nature",
		DOI:           "10.1038/nature14539",
		Keywords:      StringArray{"reinforcement learning", "deep learning", "AI", "neural networks"},
		CitationCount: 15420,
	},
	{
		ID:            "arxiv:1706.03762",
		Title:         "Attention Is All You Need",
		Authors:       StringArray{"Ashish Vaswani", "Noam Shazeer", "Niki Parmar", "Jakob Uszkoreit"},
		Abstract:      "The dominant sequence transduction models are based on complex recurrent or convolutional neural networks...",
		Year:          2017,
		Journal:       "arXiv",
		DOI:           "arxiv:1706.03762",
		OpenAccess:    true,
		Keywords:      StringArray{"transformer", "attention", "NLP", "neural networks", "machine learning"},
		CitationCount: 45670,
	},
	{
		ID:            "10.1126/science.1240527",
		Title:         "Playing Atari with Deep Reinforcement Learning",
		Authors:       StringArray{"Volodymyr Mnih", "Koray Kavukcuoglu", "David Silver"},
		Abstract:      "We present the first deep learning model to successfully learn control policies directly from high-dimensional sensory input...",
		Year:          2013,
		Journal:       "Science",
		DOI:           "10.1126/science.1240527",
		OpenAccess:    true,
		Keywords:      StringArray{"deep learning", "reinforcement learning", "games", "neural networks"},
		CitationCount: 8934,
	},
	{
		ID:            "10.1038/s41586-019-1724-z",
		Title:         "Mastering the game of Go with deep neural networks and tree search",
		Authors:       StringArray{"David Silver", "Aja Huang", "Chris J. Maddison", "Arthur Guez"},
		Abstract:      "The game of Go has long been viewed as the most challenging of classic games for artificial intelligence...",
		Year:          2016,
		Journal:       "Nature",
		DOI:           "10.1038/s41586-019-1724-z",
		Keywords:      StringArray{"Go", "AlphaGo", "Monte Carlo", "deep learning", "tree search"},
		CitationCount: 12890,
	},
}

// Seed insere usuários e papers de exemplo quando a tabela de usuários está
// vazia. hash recebe a senha em claro.
func Seed(ctx context.Context, db *gorm.DB, hash func(string) (string, error)) (bool, error) {
	var n int64
	if err := db.WithContext(ctx).Model(&User{}).Count(&n).Error; err != nil {
		return false, fmt.Errorf("count users: %w", err)
	}
	if n > 0 {
		return false, nil
	}

	users := make([]User, 0, len(DefaultSeedUsers))
	for _, su := range DefaultSeedUsers {
		h, err := hash(su.Password)
		if err != nil {
			return false, err
		}
		users = append(users, User{Email: su.Email, Name: su.Name, Role: su.Role, HashedPassword: h})
	}
	papers := make([]Paper, len(DefaultSeedPapers))
	copy(papers, DefaultSeedPapers)

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&users).Error; err != nil {
			return fmt.Errorf("seed users: %w", err)
		}
		if err := tx.Create(&papers).Error; err != nil {
			return fmt.Errorf("seed papers: %w", err)
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

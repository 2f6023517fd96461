// Package seed populates the database with development and test data.
package seed

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/culturalx/backend/internal/logger"
	"github.com/culturalx/backend/internal/models"
	"github.com/culturalx/backend/internal/moderation"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Seeder handles database seeding operations
type Seeder struct {
	db *gorm.DB
}

// NewSeeder creates a new seeder instance
func NewSeeder(db *gorm.DB) *Seeder {
	_ = gofakeit.Seed(time.Now().UnixNano())
	return &Seeder{db: db}
}

// seedCity is one entry of the built-in city list
type seedCity struct {
	name    string
	country string
	lat     float64
	lon     float64
}

var seedCities = []seedCity{
	{"Kyoto", "Japan", 35.0116, 135.7681},
	{"Lisbon", "Portugal", 38.7223, -9.1393},
	{"Oaxaca", "Mexico", 17.0732, -96.7266},
	{"Marrakesh", "Morocco", 31.6295, -7.9811},
	{"Hanoi", "Vietnam", 21.0278, 105.8342},
	{"Salvador", "Brazil", -12.9777, -38.5016},
	{"Tbilisi", "Georgia", 41.7151, 44.8271},
	{"Lagos", "Nigeria", 6.5244, 3.3792},
	{"Busan", "South Korea", 35.1796, 129.0756},
	{"Kraków", "Poland", 50.0647, 19.9450},
	{"Jaipur", "India", 26.9124, 75.7873},
	{"Cusco", "Peru", -13.5320, -71.9675},
	{"Naples", "Italy", 40.8518, 14.2681},
	{"Istanbul", "Turkey", 41.0082, 28.9784},
	{"Addis Ababa", "Ethiopia", 9.0320, 38.7469},
}

var postTypes = []string{
	models.PostTypeStory,
	models.PostTypeRecipe,
	models.PostTypePhoto,
	models.PostTypeTradition,
	models.PostTypeMusic,
	models.PostTypePlace,
}

// SeedCities inserts the built-in city list; existing cities are kept.
// Safe to run at every startup.
func (s *Seeder) SeedCities() error {
	for _, sc := range seedCities {
		var existing models.City
		err := s.db.Where("name = ? AND country = ?", sc.name, sc.country).First(&existing).Error
		if err == nil {
			continue
		}

		city := models.City{
			Name:      sc.name,
			Country:   sc.country,
			Latitude:  sc.lat,
			Longitude: sc.lon,
			IsSeed:    true,
		}
		if err := s.db.Create(&city).Error; err != nil {
			return fmt.Errorf("failed to seed city %s: %w", sc.name, err)
		}
	}
	return nil
}

// SeedDev seeds the development database with realistic data
func (s *Seeder) SeedDev() error {
	log := func(msg string) {
		logger.Log.Info(msg)
	}

	log("Seeding cities...")
	if err := s.SeedCities(); err != nil {
		return err
	}
	var cities []models.City
	if err := s.db.Find(&cities).Error; err != nil {
		return fmt.Errorf("failed to load cities: %w", err)
	}

	log("Creating users...")
	users, err := s.seedUsers(50)
	if err != nil {
		return fmt.Errorf("failed to seed users: %w", err)
	}

	log("Creating moderators...")
	if err := s.seedModerators(users, cities); err != nil {
		return fmt.Errorf("failed to seed moderators: %w", err)
	}

	log("Creating posts...")
	if err := s.seedPosts(users, cities, 200); err != nil {
		return fmt.Errorf("failed to seed posts: %w", err)
	}

	log("Creating connections...")
	if err := s.seedConnections(users, 80); err != nil {
		return fmt.Errorf("failed to seed connections: %w", err)
	}

	log("Creating messages...")
	if err := s.seedMessages(users, 300); err != nil {
		return fmt.Errorf("failed to seed messages: %w", err)
	}

	return nil
}

// SeedTest seeds a minimal, deterministic data set for e2e tests
func (s *Seeder) SeedTest() error {
	if err := s.SeedCities(); err != nil {
		return err
	}

	testUserSpecs := []struct {
		name    string
		email   string
		country string
		city    string
	}{
		{"Alice Smith", "alice@example.com", "Portugal", "Lisbon"},
		{"Bob Johnson", "bob@example.com", "Japan", "Kyoto"},
		{"Charlie Brown", "charlie@example.com", "Brazil", "Salvador"},
		{"Diana Prince", "diana@example.com", "Mexico", "Oaxaca"},
	}

	for _, spec := range testUserSpecs {
		var user models.User
		if err := s.db.Where("email = ?", spec.email).First(&user).Error; err == nil {
			continue
		}

		hashed, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("failed to hash password: %w", err)
		}
		hashedStr := string(hashed)

		user = models.User{
			Name:         spec.name,
			Email:        spec.email,
			PasswordHash: &hashedStr,
			Country:      spec.country,
			City:         spec.city,
			Bio:          gofakeit.Sentence(10),
			Languages:    []string{"en"},
		}
		if err := s.db.Create(&user).Error; err != nil {
			return fmt.Errorf("failed to create test user %s: %w", spec.email, err)
		}
	}

	return nil
}

func (s *Seeder) seedUsers(count int) ([]models.User, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	hashedStr := string(hashed)

	languagePool := []string{"en", "es", "pt", "fr", "ja", "ar", "vi", "pl", "hi", "tr", "am", "yo", "ko", "it", "ka"}
	interestPool := []string{"cooking", "street food", "folk music", "architecture", "festivals", "crafts", "photography", "dance", "tea", "markets", "history", "language exchange"}

	users := make([]models.User, 0, count)
	for i := 0; i < count; i++ {
		home := seedCities[rand.Intn(len(seedCities))]

		user := models.User{
			Name:         gofakeit.Name(),
			Email:        fmt.Sprintf("user%d_%s", i, gofakeit.Email()),
			PasswordHash: &hashedStr,
			Bio:          gofakeit.Sentence(12),
			Country:      home.country,
			City:         home.name,
			Languages:    pickSome(languagePool, 1, 3),
			Interests:    pickSome(interestPool, 2, 5),
		}
		if rand.Intn(10) == 0 {
			user.MessagingPrivacy = models.MessagingFriendsOnly
		}
		if rand.Intn(8) == 0 {
			user.ShowOnlineStatus = false
		}

		if err := s.db.Create(&user).Error; err != nil {
			return nil, fmt.Errorf("failed to create user: %w", err)
		}
		users = append(users, user)
	}

	logger.Log.Info("Seeded users", zap.Int("count", len(users)))
	return users, nil
}

func (s *Seeder) seedModerators(users []models.User, cities []models.City) error {
	if len(users) < 5 {
		return nil
	}

	// First user becomes admin, the next few become city moderators
	if err := s.db.Model(&users[0]).Update("role", models.RoleAdmin).Error; err != nil {
		return err
	}

	for i := 1; i <= 4 && i < len(users); i++ {
		if err := s.db.Model(&users[i]).Update("role", models.RoleModerator).Error; err != nil {
			return err
		}
		// Each moderator covers a few cities
		for _, city := range pickCities(cities, 3) {
			cm := models.CityModerator{CityID: city.ID, UserID: users[i].ID}
			if err := s.db.Create(&cm).Error; err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Seeder) seedPosts(users []models.User, cities []models.City, count int) error {
	approved := 0
	for i := 0; i < count; i++ {
		author := users[rand.Intn(len(users))]
		city := cities[rand.Intn(len(cities))]

		title := gofakeit.Sentence(gofakeit.Number(3, 7))
		description := gofakeit.Paragraph(1, gofakeit.Number(2, 5), gofakeit.Number(8, 16), " ")
		score := moderation.Score(title, description)

		post := models.Post{
			UserID:      author.ID,
			CityID:      city.ID,
			Type:        postTypes[rand.Intn(len(postTypes))],
			Title:       title,
			Description: description,
			Tags:        pickSome([]string{"food", "music", "craft", "festival", "daily life", "history"}, 1, 3),
			Status:      models.PostStatusPending,
			Flagged:     score.Flagged,
			FlagReasons: score.Reasons,
		}

		// Most seeded posts are already reviewed
		if !score.Flagged && rand.Intn(10) < 8 {
			now := time.Now().Add(-time.Duration(rand.Intn(720)) * time.Hour)
			post.Status = models.PostStatusApproved
			post.ApprovedAt = &now
			approved++
		}

		if err := s.db.Create(&post).Error; err != nil {
			return fmt.Errorf("failed to create post: %w", err)
		}

		if post.Status == models.PostStatusApproved {
			s.db.Model(&models.City{}).Where("id = ?", city.ID).
				Updates(map[string]interface{}{
					"content_count": gorm.Expr("content_count + 1"),
					"has_content":   true,
				})
		}
	}

	logger.Log.Info("Seeded posts", zap.Int("total", count), zap.Int("approved", approved))
	return nil
}

func (s *Seeder) seedConnections(users []models.User, count int) error {
	for i := 0; i < count; i++ {
		a := users[rand.Intn(len(users))]
		b := users[rand.Intn(len(users))]
		if a.ID == b.ID {
			continue
		}

		var existing models.Connection
		err := s.db.Where("(user1_id = ? AND user2_id = ?) OR (user1_id = ? AND user2_id = ?)",
			a.ID, b.ID, b.ID, a.ID).First(&existing).Error
		if err == nil {
			continue
		}

		conn := models.Connection{
			User1ID:     a.ID,
			User2ID:     b.ID,
			RequestedBy: a.ID,
			Status:      models.ConnectionPending,
		}
		if rand.Intn(10) < 7 {
			conn.Status = models.ConnectionAccepted
		}
		if err := s.db.Create(&conn).Error; err != nil {
			return fmt.Errorf("failed to create connection: %w", err)
		}
	}
	return nil
}

func (s *Seeder) seedMessages(users []models.User, count int) error {
	// Message only accepted connections so seeded data matches what the
	// privacy checks would have allowed
	var connections []models.Connection
	if err := s.db.Where("status = ?", models.ConnectionAccepted).Find(&connections).Error; err != nil {
		return err
	}
	if len(connections) == 0 {
		return nil
	}

	for i := 0; i < count; i++ {
		conn := connections[rand.Intn(len(connections))]
		sender, receiver := conn.User1ID, conn.User2ID
		if rand.Intn(2) == 0 {
			sender, receiver = receiver, sender
		}

		msg := models.Message{
			SenderID:   sender,
			ReceiverID: receiver,
			Content:    gofakeit.Sentence(gofakeit.Number(4, 20)),
			Read:       rand.Intn(10) < 6,
		}
		if err := s.db.Create(&msg).Error; err != nil {
			return fmt.Errorf("failed to create message: %w", err)
		}
	}
	return nil
}

func pickSome(pool []string, min, max int) []string {
	n := min
	if max > min {
		n += rand.Intn(max - min + 1)
	}
	picked := make([]string, 0, n)
	seen := map[int]bool{}
	for len(picked) < n {
		idx := rand.Intn(len(pool))
		if seen[idx] {
			continue
		}
		seen[idx] = true
		picked = append(picked, pool[idx])
	}
	return picked
}

func pickCities(cities []models.City, n int) []models.City {
	if n > len(cities) {
		n = len(cities)
	}
	picked := make([]models.City, 0, n)
	seen := map[int]bool{}
	for len(picked) < n {
		idx := rand.Intn(len(cities))
		if seen[idx] {
			continue
		}
		seen[idx] = true
		picked = append(picked, cities[idx])
	}
	return picked
}

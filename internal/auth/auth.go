package auth

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/krishanu7/battleship-engine/config"
	"github.com/krishanu7/battleship-engine/db"
	"github.com/lib/pq"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthorized       = errors.New("unauthorized")
)

const seatTokenTTL = 24 * time.Hour

// SeatClaims binds a bearer to one player seat of one match.
type SeatClaims struct {
	MatchID string `json:"match_id"`
	Player  int    `json:"player_id"`
	jwt.RegisteredClaims
}

type Service struct {
	db  *sql.DB
	cfg config.Config
	now func() time.Time
}

// NewService signs with cfg.JWTSecret. An empty secret is replaced by a random
// one for this process, so tokens signed with an empty key never verify.
func NewService(db *sql.DB, cfg config.Config) *Service {
	if cfg.JWTSecret == "" {
		log.Warn("JWT_SECRET not set; using a random per-process secret, tokens will not survive a restart")
		cfg.JWTSecret = uuid.NewString() + uuid.NewString()
	}
	return &Service{
		db:  db,
		cfg: cfg,
		now: time.Now,
	}
}

func (s *Service) Register(username, email, password string) (db.User, error) {
	if username == "" || password == "" {
		return db.User{}, fmt.Errorf("username and password cannot be empty")
	}
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return db.User{}, err
	}
	query := "INSERT INTO users (id, username, email, password, created_at) VALUES ($1, $2, $3, $4, $5) RETURNING id, username, email, created_at"
	var user db.User
	err = s.db.QueryRow(query, uuid.NewString(), username, email, string(hashedPassword), s.now()).
		Scan(&user.ID, &user.Username, &user.Email, &user.CreatedAt)

	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			if pqErr.Constraint == "users_username_key" {
				return db.User{}, fmt.Errorf("username already exists")
			}
			if pqErr.Constraint == "users_email_key" {
				return db.User{}, fmt.Errorf("email already exists")
			}
		}
		return db.User{}, err
	}
	user.Password = string(hashedPassword)
	return user, nil
}

// Login checks the password and returns a token whose subject is the user's
// name; match creation uses it as the default player name.
func (s *Service) Login(username, password string) (string, error) {
	var user db.User
	err := s.db.QueryRow(`
	SELECT id, username, email, password, created_at
	FROM users
	WHERE username = $1
`, username).Scan(&user.ID, &user.Username, &user.Email, &user.Password, &user.CreatedAt)
	if err != nil {
		return "", ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ID:        user.ID,
		Subject:   user.Username,
		ExpiresAt: jwt.NewNumericDate(s.now().Add(24 * time.Hour)),
	})
	return token.SignedString([]byte(s.cfg.JWTSecret))
}

// Username returns the subject of a login token.
func (s *Service) Username(tokenString string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	if _, err := s.parse(tokenString, claims); err != nil {
		return "", err
	}
	return claims.Subject, nil
}

func (s *Service) IssueSeatToken(matchID string, player int) (string, error) {
	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, SeatClaims{
		MatchID: matchID,
		Player:  player,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   fmt.Sprintf("%s/%d", matchID, player),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(seatTokenTTL)),
		},
	})
	return token.SignedString([]byte(s.cfg.JWTSecret))
}

// VerifySeatToken accepts a raw token or an "Authorization: Bearer" value.
func (s *Service) VerifySeatToken(tokenString string) (SeatClaims, error) {
	claims := &SeatClaims{}
	if _, err := s.parse(tokenString, claims); err != nil {
		return SeatClaims{}, err
	}
	if claims.MatchID == "" {
		return SeatClaims{}, fmt.Errorf("token has no match: %w", ErrUnauthorized)
	}
	return *claims, nil
}

func (s *Service) parse(tokenString string, claims jwt.Claims) (*jwt.Token, error) {
	tokenString = strings.TrimSpace(strings.TrimPrefix(tokenString, "Bearer "))
	if tokenString == "" {
		return nil, fmt.Errorf("missing token: %w", ErrUnauthorized)
	}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(s.cfg.JWTSecret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, ErrUnauthorized)
	}
	return token, nil
}

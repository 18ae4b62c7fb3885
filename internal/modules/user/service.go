package user

import (
	"errors"
	"time"

	mysqlDriver "github.com/go-sql-driver/mysql"
	"github.com/naver-ai-trip/backend-trip-sub001/internal/models"
	"github.com/naver-ai-trip/backend-trip-sub001/internal/pkg/jwt"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const tokenTTL = 7 * 24 * time.Hour

var (
	ErrUsernameTaken      = errors.New("username already taken")
	ErrInvalidCredentials = errors.New("invalid username or password")
)

// Service handles account registration and login.
type Service struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewService(db *gorm.DB, logger *zap.Logger) *Service {
	return &Service{db: db, logger: logger}
}

func (s *Service) Register(dto *RegisterDTO) (*models.UserModel, error) {
	var count int64
	if err := s.db.Model(&models.UserModel{}).Where("username = ?", dto.Username).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrUsernameTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(dto.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	u := models.UserModel{
		Username: dto.Username,
		Name:     dto.Name,
		Password: string(hash),
	}
	if u.Name == "" {
		u.Name = u.Username
	}
	if err := s.db.Create(&u).Error; err != nil {
		// The count check above races with concurrent registrations; the
		// unique index on username is the authority.
		if isDuplicateUsernameError(err) {
			return nil, ErrUsernameTaken
		}
		return nil, err
	}
	return &u, nil
}

func isDuplicateUsernameError(err error) bool {
	var mysqlErr *mysqlDriver.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == 1062
}

// Login verifies credentials and issues a signed token. The login
// timestamp and origin IP are recorded for the account page.
func (s *Service) Login(dto *LoginDTO, clientIP string) (string, *models.UserModel, error) {
	var u models.UserModel
	if err := s.db.First(&u, "username = ?", dto.Username).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, err
	}

	if bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(dto.Password)) != nil {
		return "", nil, ErrInvalidCredentials
	}

	token, err := jwt.Sign(u.ID, tokenTTL)
	if err != nil {
		return "", nil, err
	}

	now := time.Now()
	if err := s.db.Model(&u).Updates(map[string]interface{}{
		"last_login_time": now,
		"last_login_ip":   clientIP,
	}).Error; err != nil {
		s.logger.Warn("failed to record login", zap.String("user_id", u.ID), zap.Error(err))
	}
	u.LastLoginTime = &now
	u.LastLoginIP = clientIP

	return token, &u, nil
}

func (s *Service) GetByID(id string) (*models.UserModel, error) {
	var u models.UserModel
	if err := s.db.First(&u, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

func toResponse(u *models.UserModel) userResponse {
	return userResponse{
		ID:            u.ID,
		Username:      u.Username,
		Name:          u.Name,
		LastLoginTime: u.LastLoginTime,
		Created:       u.CreatedAt,
	}
}

package user

import (
	"fmt"
	"strings"
	"testing"

	"github.com/naver-ai-trip/backend-trip-sub001/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func testService(t *testing.T) *Service {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.UserModel{}))
	return NewService(db, zap.NewNop())
}

func TestRegisterAndLogin(t *testing.T) {
	svc := testService(t)

	u, err := svc.Register(&RegisterDTO{Username: "traveler", Password: "s3cret-pass"})
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret-pass", u.Password, "password must be stored hashed")

	token, logged, err := svc.Login(&LoginDTO{Username: "traveler", Password: "s3cret-pass"}, "10.0.0.1")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, u.ID, logged.ID)
	assert.NotNil(t, logged.LastLoginTime)
	assert.Equal(t, "10.0.0.1", logged.LastLoginIP)
}

func TestLoginWrongPassword(t *testing.T) {
	svc := testService(t)
	_, err := svc.Register(&RegisterDTO{Username: "traveler", Password: "s3cret-pass"})
	require.NoError(t, err)

	_, _, err = svc.Login(&LoginDTO{Username: "traveler", Password: "wrong"}, "")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, _, err = svc.Login(&LoginDTO{Username: "nobody", Password: "wrong"}, "")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestRegisterDuplicateUsername(t *testing.T) {
	svc := testService(t)
	_, err := svc.Register(&RegisterDTO{Username: "traveler", Password: "s3cret-pass"})
	require.NoError(t, err)

	_, err = svc.Register(&RegisterDTO{Username: "traveler", Password: "other-pass"})
	assert.ErrorIs(t, err, ErrUsernameTaken)
}

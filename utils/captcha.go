package utils

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/mojocn/base64Captcha"
	"github.com/redis/go-redis/v9"
)

const captchaKeyPrefix = "captcha:"

// Captcha issues digit captchas for the signup form. A nil *Captcha is disabled.
type Captcha struct {
	store  base64Captcha.Store
	driver base64Captcha.Driver
}

// NewCaptcha keeps answers in redis when rc is set, in process memory otherwise.
func NewCaptcha(rc *redis.Client, ttl time.Duration) *Captcha {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	var store base64Captcha.Store
	if rc != nil {
		store = &redisCaptchaStore{rc: rc, ttl: ttl}
	} else {
		store = base64Captcha.NewMemoryStore(base64Captcha.GCLimitNumber, ttl)
	}
	return &Captcha{
		store:  store,
		driver: base64Captcha.NewDriverDigit(40, 120, 5, 0.7, 80),
	}
}

// Generate creates a captcha and returns its id and a data URI of the image.
func (c *Captcha) Generate() (string, string, error) {
	id, b64, _, err := base64Captcha.NewCaptcha(c.driver, c.store).Generate()
	return id, b64, err
}

// Verify checks the answer and consumes the captcha either way.
func (c *Captcha) Verify(id, answer string) bool {
	id, answer = strings.TrimSpace(id), strings.TrimSpace(answer)
	if id == "" || answer == "" {
		return false
	}
	return c.store.Verify(id, answer, true)
}

// redisCaptchaStore implements base64Captcha.Store so captchas survive across instances.
type redisCaptchaStore struct {
	rc  *redis.Client
	ttl time.Duration
}

func (s *redisCaptchaStore) Set(id string, value string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return s.rc.Set(ctx, captchaKeyPrefix+id, value, s.ttl).Err()
}

func (s *redisCaptchaStore) Get(id string, clear bool) string {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	var (
		v   string
		err error
	)
	if clear {
		v, err = s.rc.GetDel(ctx, captchaKeyPrefix+id).Result()
	} else {
		v, err = s.rc.Get(ctx, captchaKeyPrefix+id).Result()
	}
	if err != nil && !errors.Is(err, redis.Nil) {
		Sugar.Warnf("captcha store: %v", err)
	}
	return v
}

func (s *redisCaptchaStore) Verify(id, answer string, clear bool) bool {
	v := s.Get(id, clear)
	return v != "" && v == answer
}

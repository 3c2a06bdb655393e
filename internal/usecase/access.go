package usecase

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/google/uuid"

	"github.com/V4T54L/service-portal/internal/domain"
	"github.com/V4T54L/service-portal/internal/pkg/util"
)

const (
	minPasswordLength = 8
	otpDigits         = 6
	otpMessageFormat  = "Your verification code: %s"
)

// AccessConfig tunes signup and login.
type AccessConfig struct {
	JWTSecret      string
	JWTExpiry      time.Duration
	OTPTTL         time.Duration
	ResendCooldown time.Duration
	// Bypass skips SMS delivery and accepts DevCode instead.
	Bypass  bool
	DevCode string
}

// CooldownError is returned while a new code may not be sent yet.
type CooldownError struct {
	Remaining time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("wait %d seconds before requesting a new code", int(e.Remaining.Round(time.Second).Seconds()))
}

func (e *CooldownError) Unwrap() error { return domain.ErrOTPCooldown }

// AuthResult is returned after a successful login or signup.
type AuthResult struct {
	Token string       `json:"token"`
	Actor domain.Actor `json:"actor"`
}

// AccessUseCase handles phone-number signup with OTP confirmation and login.
type AccessUseCase struct {
	users  domain.UserRepository
	otps   domain.OTPRepository
	sms    domain.SMSSender
	cfg    AccessConfig
	logger *slog.Logger
	now    func() time.Time
}

func NewAccessUseCase(users domain.UserRepository, otps domain.OTPRepository, sms domain.SMSSender, cfg AccessConfig, logger *slog.Logger) *AccessUseCase {
	return &AccessUseCase{
		users:  users,
		otps:   otps,
		sms:    sms,
		cfg:    cfg,
		logger: logger.With("component", "access_usecase"),
		now:    time.Now,
	}
}

// StartSignup validates the form, stores the pending signup and sends a code.
func (uc *AccessUseCase) StartSignup(ctx context.Context, phoneRaw, nationalIDRaw, password string) error {
	phone := Digits(phoneRaw)
	nationalID := Digits(nationalIDRaw)

	errs := domain.ValidationErrors{}
	if !validPhone(phone) {
		errs[string(domain.FieldPhone)] = MsgPhoneLength
	}
	if !validNationalID(nationalID) {
		errs[string(domain.FieldNationalID)] = MsgNationalIDLength
	}
	if len(password) < minPasswordLength {
		errs["password"] = MsgPasswordTooShort
	}
	if len(errs) > 0 {
		return errs
	}

	if _, err := uc.users.FindByPhone(ctx, phone); err == nil {
		return fmt.Errorf("%w: phone already registered", domain.ErrDuplicateEntry)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("find user: %w", err)
	}

	hash, err := util.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	return uc.issueCode(ctx, domain.PendingSignup{Phone: phone, NationalID: nationalID, PasswordHash: hash})
}

// ResendCode sends a fresh code for an existing pending signup.
func (uc *AccessUseCase) ResendCode(ctx context.Context, phoneRaw string) error {
	pending, err := uc.otps.GetPending(ctx, Digits(phoneRaw))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrSignupNotPending
		}
		return fmt.Errorf("load pending signup: %w", err)
	}
	return uc.issueCode(ctx, *pending)
}

// VerifySignup checks the code, creates the account and signs the user in.
func (uc *AccessUseCase) VerifySignup(ctx context.Context, phoneRaw, code string) (*AuthResult, error) {
	phone := Digits(phoneRaw)
	pending, err := uc.otps.GetPending(ctx, phone)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrSignupNotPending
		}
		return nil, fmt.Errorf("load pending signup: %w", err)
	}

	expected := pending.Code
	if uc.cfg.Bypass {
		expected = uc.cfg.DevCode
	}
	if code == "" || Digits(code) != expected {
		return nil, domain.ErrOTPInvalid
	}

	user := &domain.User{
		ID:           uuid.New(),
		Phone:        pending.Phone,
		NationalID:   pending.NationalID,
		PasswordHash: pending.PasswordHash,
		CreatedAt:    uc.now().UTC(),
	}
	if err := uc.users.Store(ctx, user); err != nil {
		return nil, err
	}
	if err := uc.otps.DeletePending(ctx, phone); err != nil {
		uc.logger.Warn("failed to clear pending signup", "error", err)
	}

	uc.logger.Info("account created", "user_id", user.ID)
	return uc.authenticate(user)
}

// Login checks the phone and password.
func (uc *AccessUseCase) Login(ctx context.Context, phoneRaw, password string) (*AuthResult, error) {
	phone := Digits(phoneRaw)
	if phone == "" || password == "" {
		return nil, domain.ValidationErrors{domain.FormErrorKey: MsgPasswordRequired}
	}

	user, err := uc.users.FindByPhone(ctx, phone)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}
	if !util.CheckPasswordHash(password, user.PasswordHash) {
		return nil, domain.ErrInvalidCredentials
	}

	uc.logger.Info("login", "user_id", user.ID)
	return uc.authenticate(user)
}

// Authenticate turns a bearer token into an actor.
func (uc *AccessUseCase) Authenticate(token string) (*domain.Actor, error) {
	claims, err := util.ValidateToken(token, uc.cfg.JWTSecret)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidCredentials, err)
	}
	return &domain.Actor{UserID: claims.UserID.String(), Phone: claims.Phone}, nil
}

func (uc *AccessUseCase) authenticate(user *domain.User) (*AuthResult, error) {
	token, err := util.GenerateToken(user.ID, user.Phone, uc.cfg.JWTSecret, uc.cfg.JWTExpiry)
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}
	return &AuthResult{Token: token, Actor: domain.Actor{UserID: user.ID.String(), Phone: user.Phone}}, nil
}

func (uc *AccessUseCase) issueCode(ctx context.Context, pending domain.PendingSignup) error {
	remaining, ok, err := uc.otps.AcquireCooldown(ctx, pending.Phone, uc.cfg.ResendCooldown)
	if err != nil {
		return fmt.Errorf("acquire otp cooldown: %w", err)
	}
	if !ok {
		return &CooldownError{Remaining: remaining}
	}

	code := uc.cfg.DevCode
	if !uc.cfg.Bypass {
		if code, err = generateCode(); err != nil {
			return err
		}
	}
	pending.Code = code
	pending.SentAt = uc.now().UTC()

	if err := uc.otps.SavePending(ctx, pending, uc.cfg.OTPTTL); err != nil {
		return fmt.Errorf("save pending signup: %w", err)
	}

	if uc.cfg.Bypass {
		uc.logger.Info("otp bypass enabled, code not sent", "phone", pending.Phone, "code", code)
		return nil
	}
	if err := uc.sms.Send(ctx, pending.Phone, fmt.Sprintf(otpMessageFormat, code)); err != nil {
		uc.logger.Error("failed to send otp", "error", err)
		return fmt.Errorf("%w: %v", domain.ErrNotificationFailed, err)
	}
	return nil
}

func generateCode() (string, error) {
	limit := big.NewInt(1_000_000)
	n, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	return fmt.Sprintf("%0*d", otpDigits, n.Int64()), nil
}

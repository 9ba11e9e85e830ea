package forms

import (
	"regexp"
	"strconv"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

const (
	UsernameMaxLength = 150
	EmailMaxLength    = 254

	// MsgInvalidLogin is shown when the credentials do not match an account.
	MsgInvalidLogin = "Please enter a correct username and password. Note that both fields may be case-sensitive."
	// MsgInactiveAccount is shown when the credentials match a disabled account.
	MsgInactiveAccount = "This account is inactive."
	// MsgWrongOldPassword is shown when the current password does not verify.
	MsgWrongOldPassword = "Your old password was entered incorrectly. Please enter it again."
	// MsgUsernameTaken is shown when the username already exists.
	MsgUsernameTaken = "A user with that username already exists."
	// MsgEmailTaken is shown when the email already exists.
	MsgEmailTaken = "A user with that email already exists."
	// MsgInvalidCaptcha is shown when the signup captcha answer is wrong or expired.
	MsgInvalidCaptcha = "Invalid captcha, please try again."
)

var usernamePattern = regexp.MustCompile(`^[\w.@+-]+$`)

// SignupForm is the account creation payload.
type SignupForm struct {
	Username  string `form:"username" json:"username"`
	Email     string `form:"email" json:"email"`
	Age       string `form:"age" json:"age"`
	Password1 string `form:"password1" json:"password1"`
	Password2 string `form:"password2" json:"password2"`
	// Captcha fields are checked by the controller when captchas are enabled.
	CaptchaID     string `form:"captcha_id" json:"-"`
	CaptchaAnswer string `form:"captcha" json:"-"`

	age *uint
}

// Validate normalizes the form and returns its field errors.
func (f *SignupForm) Validate() Errors {
	f.Username = strings.TrimSpace(f.Username)
	f.Email = strings.TrimSpace(f.Email)
	f.Age = strings.TrimSpace(f.Age)

	errs := fromValidation(validation.ValidateStruct(f,
		validation.Field(&f.Username,
			validation.Required.Error(msgRequired),
			validation.RuneLength(0, UsernameMaxLength).Error("Ensure this value has at most 150 characters."),
			validation.Match(usernamePattern).Error("Enter a valid username. This value may contain only letters, numbers, and @/./+/-/_ characters."),
		),
		validation.Field(&f.Email,
			validation.Required.Error(msgRequired),
			validation.RuneLength(0, EmailMaxLength).Error("Ensure this value has at most 254 characters."),
			is.EmailFormat.Error("Enter a valid email address."),
		),
		validation.Field(&f.Password1, validation.Required.Error(msgRequired)),
		validation.Field(&f.Password2, validation.Required.Error(msgRequired)),
	))

	f.age = nil
	if f.Age != "" {
		n, err := strconv.ParseInt(f.Age, 10, 64)
		switch {
		case err != nil:
			errs.Add("age", "Enter a whole number.")
		case n < 0:
			errs.Add("age", "Ensure this value is greater than or equal to 0.")
		case n > 4294967295:
			errs.Add("age", "Ensure this value is less than or equal to 4294967295.")
		default:
			v := uint(n)
			f.age = &v
		}
	}

	if !errs.Has("password1") && !errs.Has("password2") {
		if f.Password1 != f.Password2 {
			errs.Add("password2", msgPasswordMismatch)
		} else if problems := PasswordProblems(f.Password2,
			UserAttribute{Label: "username", Value: f.Username},
			UserAttribute{Label: "email address", Value: f.Email},
		); len(problems) > 0 {
			errs.Add("password2", strings.Join(problems, " "))
		}
	}
	return errs
}

// AgeValue returns the parsed age after a successful Validate, or nil when blank.
func (f *SignupForm) AgeValue() *uint {
	return f.age
}

// LoginForm carries the credentials for authentication.
type LoginForm struct {
	Username string `form:"username" json:"username"`
	Password string `form:"password" json:"password"`
	Next     string `form:"next" json:"next"`
}

// Validate checks that both credentials are present.
func (f *LoginForm) Validate() Errors {
	f.Username = strings.TrimSpace(f.Username)
	return fromValidation(validation.ValidateStruct(f,
		validation.Field(&f.Username, validation.Required.Error(msgRequired)),
		validation.Field(&f.Password, validation.Required.Error(msgRequired)),
	))
}

// PasswordChangeForm is submitted by an authenticated user to replace their password.
type PasswordChangeForm struct {
	OldPassword  string `form:"old_password" json:"old_password"`
	NewPassword1 string `form:"new_password1" json:"new_password1"`
	NewPassword2 string `form:"new_password2" json:"new_password2"`
}

// Validate checks presence, confirmation and password strength.
// The old password itself is verified by the caller.
func (f *PasswordChangeForm) Validate(attrs ...UserAttribute) Errors {
	errs := fromValidation(validation.ValidateStruct(f,
		validation.Field(&f.OldPassword, validation.Required.Error(msgRequired)),
		validation.Field(&f.NewPassword1, validation.Required.Error(msgRequired)),
		validation.Field(&f.NewPassword2, validation.Required.Error(msgRequired)),
	))
	if errs.Has("new_password1") || errs.Has("new_password2") {
		return errs
	}
	if f.NewPassword1 != f.NewPassword2 {
		errs.Add("new_password2", msgPasswordMismatch)
	} else if problems := PasswordProblems(f.NewPassword2, attrs...); len(problems) > 0 {
		errs.Add("new_password2", strings.Join(problems, " "))
	}
	return errs
}

package domain

// LoginForm holds login credentials.
type LoginForm struct {
	Email    string `form:"email" validate:"required,email"`
	Password string `form:"password" validate:"required,min=8"`
}

// RegisterForm holds the sign-up fields.
type RegisterForm struct {
	FullName        string `form:"fullName" validate:"required,personname"`
	Email           string `form:"email" validate:"required,email"`
	Password        string `form:"password" validate:"required,min=8"`
	ConfirmPassword string `form:"confirmPassword" validate:"required,eqfield=Password"`
	Phone           string `form:"phone" validate:"required,phone"`
	Address         string `form:"address" validate:"required,min=5"`
}

// ProfileUpdate is a partial profile change; nil fields are left untouched.
type ProfileUpdate struct {
	FullName *string `form:"fullName" validate:"omitempty,personname"`
	Email    *string `form:"email" validate:"omitempty,email"`
	Phone    *string `form:"phone" validate:"omitempty,phone"`
	Address  *string `form:"address" validate:"omitempty,min=5"`
}

// Empty reports whether no field is set.
func (p ProfileUpdate) Empty() bool {
	return p.FullName == nil && p.Email == nil && p.Phone == nil && p.Address == nil
}

// PasswordChange holds a password reset request.
type PasswordChange struct {
	Current string `form:"oldPassword" validate:"required"`
	New     string `form:"newPassword" validate:"required,min=8"`
	Confirm string `form:"confirmPassword" validate:"required,eqfield=New"`
}

// CheckoutForm holds the delivery details of an order.
type CheckoutForm struct {
	FullName      string `form:"fullName" validate:"notblank"`
	Phone         string `form:"phone" validate:"notblank"`
	Address       string `form:"address" validate:"notblank"`
	DestinationID int64  `form:"destination" validate:"gt=0"`
}

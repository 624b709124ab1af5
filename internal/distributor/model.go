package distributor

type FirstUserForm struct {
	Name     string `json:"name" binding:"required,max=255"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

type CreateRequest struct {
	Name         string         `json:"name" binding:"required,max=255"`
	Territory    string         `json:"territory" binding:"max=255"`
	AccountType  string         `json:"account_type" binding:"omitempty,oneof=exclusive non_exclusive non-exclusive"`
	Status       string         `json:"status" binding:"omitempty,oneof=active pending inactive"`
	ContactName  string         `json:"contact_name" binding:"max=255"`
	ContactEmail string         `json:"contact_email" binding:"omitempty,email"`
	ContactPhone string         `json:"contact_phone" binding:"max=64"`
	Address      string         `json:"address"`
	FirstUser    *FirstUserForm `json:"first_user"`
}

type UpdateRequest struct {
	Name         *string `json:"name" binding:"omitempty,min=1,max=255"`
	Territory    *string `json:"territory" binding:"omitempty,max=255"`
	AccountType  *string `json:"account_type" binding:"omitempty,oneof=exclusive non_exclusive non-exclusive"`
	Status       *string `json:"status" binding:"omitempty,oneof=active pending inactive"`
	ContactName  *string `json:"contact_name" binding:"omitempty,max=255"`
	ContactEmail *string `json:"contact_email" binding:"omitempty,email"`
	ContactPhone *string `json:"contact_phone" binding:"omitempty,max=64"`
	Address      *string `json:"address"`
}

type Filter struct {
	Status string
	Search string
}

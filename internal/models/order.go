package models

// Order is the slice of the checkout collaborator's order that the
// tracking layer needs: who may see it and where it stands.
type Order struct {
	BaseModel
	BuyerID        string      `gorm:"type:varchar(36);not null;index" json:"buyer_id"`
	RoasterID      string      `gorm:"type:varchar(36);not null;index" json:"roaster_id"`
	Status         OrderStatus `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
	TrackingNumber string      `json:"tracking_number,omitempty"`
}

// Participant reports whether userID is the buyer or the roaster of the order.
func (o *Order) Participant(userID string) bool {
	return userID != "" && (o.BuyerID == userID || o.RoasterID == userID)
}

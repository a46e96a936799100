package model

// RoomsTable names the rooms table on every store backend.
const RoomsTable = "rooms"

type RoomType string

const (
	RoomTypeSingle RoomType = "Single"
	RoomTypeDouble RoomType = "Double"
	RoomTypeSuite  RoomType = "Suite"
)

var RoomTypes = []RoomType{RoomTypeSingle, RoomTypeDouble, RoomTypeSuite}

func (t RoomType) Valid() bool {
	for _, rt := range RoomTypes {
		if t == rt {
			return true
		}
	}
	return false
}

// Room carries no availability flag; availability is derived from bookings.
type Room struct {
	ID            string   `json:"id" bson:"_id" validate:"omitempty,uuid4"`
	RoomType      RoomType `json:"room_type" bson:"room_type" validate:"required,room_type"`
	PricePerNight float64  `json:"price_per_night" bson:"price_per_night" validate:"required,gt=0"`
}

func (r *Room) GetID() string   { return r.ID }
func (r *Room) SetID(id string) { r.ID = id }

type RoomUpdate struct {
	RoomType      *RoomType `json:"room_type,omitempty" validate:"omitempty,room_type"`
	PricePerNight *float64  `json:"price_per_night,omitempty" validate:"omitempty,gt=0"`
}

func (u *RoomUpdate) IsEmpty() bool {
	return u.RoomType == nil && u.PricePerNight == nil
}

// Apply copies the present fields of the update onto r.
func (u *RoomUpdate) Apply(r *Room) {
	if u.RoomType != nil {
		r.RoomType = *u.RoomType
	}
	if u.PricePerNight != nil {
		r.PricePerNight = *u.PricePerNight
	}
}

type RoomAvailability struct {
	RoomID        string  `json:"room_id"`
	Available     bool    `json:"available"`
	Nights        int     `json:"nights"`
	PricePerNight float64 `json:"price_per_night"`
	TotalPrice    float64 `json:"total_price"`
}

package validator

import (
	"hotelbook/pkg/logger"
	"hotelbook/pkg/model"
	"hotelbook/pkg/validation"

	"github.com/go-playground/validator/v10"
)

type RoomValidator struct {
	validate *validator.Validate
	logger   *logger.Logger
}

func NewRoomValidator(log *logger.Logger) *RoomValidator {
	v, err := validation.New()
	if err != nil {
		log.Fatal("Failed to initialize room validator", "error", err)
	}

	log.Debug("Room validator initialized successfully")

	return &RoomValidator{
		validate: v,
		logger:   log,
	}
}

func (v *RoomValidator) Validate(room *model.Room) error {
	return validation.Struct(v.validate, room)
}

func (v *RoomValidator) ValidateUpdate(update *model.RoomUpdate) error {
	if update.IsEmpty() {
		return validation.ValidationErrors{
			validation.ValidationError{
				Field:   "body",
				Message: "at least one of room_type or price_per_night must be provided",
			},
		}
	}
	return validation.Struct(v.validate, update)
}

package client

import (
	"context"
	"net/url"

	"hotelbook/pkg/model"
)

type BookingClient struct {
	httpClient *HttpClient
}

func NewBookingClient(baseURL string) *BookingClient {
	return &BookingClient{httpClient: NewHttpClient(baseURL)}
}

func (c *BookingClient) Create(ctx context.Context, req model.BookingRequest) (*Response, error) {
	return c.httpClient.POST(ctx, "/bookings", req)
}

// CreateIdempotent sends the request with an Idempotency-Key header.
func (c *BookingClient) CreateIdempotent(ctx context.Context, req model.BookingRequest, key string) (*Response, error) {
	return c.httpClient.POSTWithHeaders(ctx, "/bookings", req, map[string]string{"Idempotency-Key": key})
}

func (c *BookingClient) CreateRaw(ctx context.Context, rawBody []byte) (*Response, error) {
	return c.httpClient.POSTRaw(ctx, "/bookings", rawBody)
}

// List returns every booking, or only those for roomID when it is non-empty.
func (c *BookingClient) List(ctx context.Context, roomID string) (*Response, error) {
	path := "/bookings"
	if roomID != "" {
		path += "?" + url.Values{"room_id": {roomID}}.Encode()
	}
	return c.httpClient.GET(ctx, path)
}

func (c *BookingClient) GetByID(ctx context.Context, id string) (*Response, error) {
	return c.httpClient.GET(ctx, "/bookings/"+url.PathEscape(id))
}

func (c *BookingClient) Cancel(ctx context.Context, id string) (*Response, error) {
	return c.httpClient.DELETE(ctx, "/bookings/"+url.PathEscape(id))
}

func DecodeBooking(resp *Response) (*model.Booking, error) {
	var booking model.Booking
	if err := resp.DecodeData(&booking); err != nil {
		return nil, err
	}
	return &booking, nil
}

func DecodeBookings(resp *Response) ([]*model.Booking, error) {
	var bookings []*model.Booking
	if err := resp.DecodeData(&bookings); err != nil {
		return nil, err
	}
	return bookings, nil
}

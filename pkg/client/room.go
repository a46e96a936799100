package client

import (
	"context"
	"net/url"
	"time"

	"hotelbook/pkg/model"
)

type RoomClient struct {
	httpClient *HttpClient
}

func NewRoomClient(baseURL string) *RoomClient {
	return &RoomClient{httpClient: NewHttpClient(baseURL)}
}

func (c *RoomClient) Create(ctx context.Context, room model.Room) (*Response, error) {
	return c.httpClient.POST(ctx, "/rooms", room)
}

// List returns every room, or only rooms of roomType when it is non-empty.
func (c *RoomClient) List(ctx context.Context, roomType string) (*Response, error) {
	path := "/rooms"
	if roomType != "" {
		path += "?" + url.Values{"room_type": {roomType}}.Encode()
	}
	return c.httpClient.GET(ctx, path)
}

func (c *RoomClient) GetByID(ctx context.Context, id string) (*Response, error) {
	return c.httpClient.GET(ctx, "/rooms/"+url.PathEscape(id))
}

func (c *RoomClient) Update(ctx context.Context, id string, update model.RoomUpdate) (*Response, error) {
	return c.httpClient.PUT(ctx, "/rooms/"+url.PathEscape(id), update)
}

func (c *RoomClient) Delete(ctx context.Context, id string) (*Response, error) {
	return c.httpClient.DELETE(ctx, "/rooms/"+url.PathEscape(id))
}

func (c *RoomClient) Availability(ctx context.Context, id string, start, end time.Time) (*Response, error) {
	q := url.Values{}
	q.Set("start_datetime", start.Format(time.RFC3339))
	q.Set("end_datetime", end.Format(time.RFC3339))
	return c.httpClient.GET(ctx, "/rooms/"+url.PathEscape(id)+"/availability?"+q.Encode())
}

func DecodeRoom(resp *Response) (*model.Room, error) {
	var room model.Room
	if err := resp.DecodeData(&room); err != nil {
		return nil, err
	}
	return &room, nil
}

func DecodeRooms(resp *Response) ([]*model.Room, error) {
	var rooms []*model.Room
	if err := resp.DecodeData(&rooms); err != nil {
		return nil, err
	}
	return rooms, nil
}

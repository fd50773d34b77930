package client

import (
	"encoding/json"
	"fmt"
	"net/url"

	"campuspark/pkg/model"
)

type ReservationClient struct {
	httpClient *HttpClient
}

func NewReservationClient(baseUrl string) *ReservationClient {
	return &ReservationClient{
		httpClient: NewHttpClient(baseUrl),
	}
}

// WithToken sends the bearer token on every request; approve and reject need an admin token.
func (c *ReservationClient) WithToken(token string) *ReservationClient {
	c.setHeader("Authorization", "Bearer "+token)
	return c
}

// WithRequester identifies the caller for per-requester rate limiting.
func (c *ReservationClient) WithRequester(requester string) *ReservationClient {
	c.setHeader("X-Requester", requester)
	return c
}

func (c *ReservationClient) setHeader(key, value string) {
	if c.httpClient.Headers == nil {
		c.httpClient.Headers = map[string]string{}
	}
	c.httpClient.Headers[key] = value
}

func (c *ReservationClient) Create(body any) (*Response, error) {
	return c.httpClient.POST("/api/v1/reservations", body)
}

func (c *ReservationClient) CreateRaw(rawBody []byte) (*Response, error) {
	return c.httpClient.POSTRaw("/api/v1/reservations", rawBody)
}

func (c *ReservationClient) List(requester string, kind model.ReservationKind, limit int, offset int64) (*Response, error) {
	q := url.Values{}
	if requester != "" {
		q.Set("requester", requester)
	}
	if kind != "" {
		q.Set("kind", string(kind))
	}
	q.Set("limit", fmt.Sprintf("%d", limit))
	q.Set("offset", fmt.Sprintf("%d", offset))

	return c.httpClient.GET("/api/v1/reservations?" + q.Encode())
}

func (c *ReservationClient) GetByID(id string) (*Response, error) {
	return c.httpClient.GET(reservationPath(id))
}

func (c *ReservationClient) Modify(id string, body any) (*Response, error) {
	return c.httpClient.PATCH(reservationPath(id), body)
}

func (c *ReservationClient) Cancel(id string) (*Response, error) {
	return c.httpClient.POST(reservationPath(id)+"/cancel", nil)
}

func (c *ReservationClient) Approve(id, adminNotes string) (*Response, error) {
	return c.httpClient.POST(reservationPath(id)+"/approve", model.AdminDecision{AdminNotes: adminNotes})
}

func (c *ReservationClient) Reject(id, adminNotes string) (*Response, error) {
	return c.httpClient.POST(reservationPath(id)+"/reject", model.AdminDecision{AdminNotes: adminNotes})
}

func (c *ReservationClient) ConfirmPayment(reservationID, sessionID string, headers map[string]string) (*Response, error) {
	body := model.PaymentConfirmation{ReservationID: reservationID, SessionID: sessionID}
	return c.httpClient.POSTWithHeaders("/api/v1/payments/confirm", body, headers)
}

func reservationPath(id string) string {
	return "/api/v1/reservations/id/" + url.PathEscape(id)
}

func (c *ReservationClient) DecodeReservation(resp *Response) (*model.ReservationView, error) {
	var wrapper struct {
		Data json.RawMessage `json:"data"`
	}

	if err := json.Unmarshal(resp.Body, &wrapper); err != nil {
		return nil, fmt.Errorf("could not decode reservation wrapper:\n%+v\n%s", resp.ToString(), err)
	}

	view := &model.ReservationView{Reservation: &model.Reservation{}}
	if err := json.Unmarshal(wrapper.Data, view); err != nil {
		return nil, fmt.Errorf("could not decode reservation json:\n%+v\n%s", resp.ToString(), err)
	}

	return view, nil
}

func (c *ReservationClient) DecodeReservations(resp *Response) ([]*model.ReservationView, *Metadata, error) {
	var wrapper struct {
		Data json.RawMessage `json:"data"`
		Metadata
	}

	if err := json.Unmarshal(resp.Body, &wrapper); err != nil {
		return nil, nil, fmt.Errorf("could not decode paginated resp:\n%+v\n%s", resp.ToString(), err)
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(wrapper.Data, &raw); err != nil {
		return nil, nil, fmt.Errorf("could not decode reservation list:\n%+v\n%s", resp.ToString(), err)
	}

	views := make([]*model.ReservationView, 0, len(raw))
	for _, item := range raw {
		view := &model.ReservationView{Reservation: &model.Reservation{}}
		if err := json.Unmarshal(item, view); err != nil {
			return nil, nil, fmt.Errorf("could not decode reservation list item:\n%+v\n%s", resp.ToString(), err)
		}
		views = append(views, view)
	}

	metadata := wrapper.Metadata
	return views, &metadata, nil
}

package client

import (
	"encoding/json"
	"fmt"
	"net/url"

	"campuspark/pkg/model"
)

type LotClient struct {
	httpClient *HttpClient
}

func NewLotClient(baseUrl string) *LotClient {
	return &LotClient{
		httpClient: NewHttpClient(baseUrl),
	}
}

func (c *LotClient) GetAll(limit int, offset int64) (*Response, error) {
	return c.httpClient.GET(fmt.Sprintf("/api/v1/lots?limit=%d&offset=%d", limit, offset))
}

func (c *LotClient) GetByID(id string) (*Response, error) {
	return c.httpClient.GET("/api/v1/lots/id/" + url.PathEscape(id))
}

func (c *LotClient) ListSpots(lotID string) (*Response, error) {
	return c.httpClient.GET("/api/v1/lots/id/" + url.PathEscape(lotID) + "/spots")
}

func (c *LotClient) GetSpot(id string) (*Response, error) {
	return c.httpClient.GET("/api/v1/spots/id/" + url.PathEscape(id))
}

func (c *LotClient) DecodeLot(resp *Response) (*model.Lot, error) {
	var lot model.Lot
	if err := decodeData(resp, &lot); err != nil {
		return nil, err
	}
	return &lot, nil
}

func (c *LotClient) DecodeSpot(resp *Response) (*model.Spot, error) {
	var spot model.Spot
	if err := decodeData(resp, &spot); err != nil {
		return nil, err
	}
	return &spot, nil
}

func (c *LotClient) DecodeSpots(resp *Response) ([]*model.Spot, error) {
	var spots []*model.Spot
	if err := decodeData(resp, &spots); err != nil {
		return nil, err
	}
	return spots, nil
}

func (c *LotClient) DecodeLots(resp *Response) ([]*model.Lot, *Metadata, error) {
	var wrapper struct {
		Data []*model.Lot `json:"data"`
		Metadata
	}
	if err := json.Unmarshal(resp.Body, &wrapper); err != nil {
		return nil, nil, fmt.Errorf("could not decode paginated resp:\n%+v\n%s", resp.ToString(), err)
	}
	metadata := wrapper.Metadata
	return wrapper.Data, &metadata, nil
}

func decodeData(resp *Response, target any) error {
	var wrapper struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(resp.Body, &wrapper); err != nil {
		return fmt.Errorf("could not decode wrapper:\n%+v\n%s", resp.ToString(), err)
	}
	if err := json.Unmarshal(wrapper.Data, target); err != nil {
		return fmt.Errorf("could not decode data:\n%+v\n%s", resp.ToString(), err)
	}
	return nil
}

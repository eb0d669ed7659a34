package apis

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/tidwall/gjson"
)

const ninjasBase = "https://api.api-ninjas.com/v1"

// MaxFacts is the most facts one Facts call returns.
const MaxFacts = 3

// Ninjas is an API Ninjas client.
type Ninjas struct {
	httpConfig
	APIKey string
}

// NewNinjas returns a client using apiKey.
func NewNinjas(apiKey string, hc *http.Client) *Ninjas {
	return &Ninjas{APIKey: apiKey, httpConfig: httpConfig{HTTPClient: hc}}
}

// IPInfo is the subset of an iplookup answer shown to users.
type IPInfo struct {
	IP          string
	CountryCode string
	Country     string
	RegionCode  string
	Region      string
	Timezone    string
}

// Hobby is one hobbies answer.
type Hobby struct {
	Name     string
	Category string
	Link     string
}

const unknown = "unknown"

func (c *Ninjas) get(ctx context.Context, path string) (gjson.Result, error) {
	if c.APIKey == "" {
		return gjson.Result{}, ErrMissingKey
	}
	h := http.Header{}
	h.Set("X-Api-Key", c.APIKey)
	return c.getJSON(ctx, "ninjas", ninjasBase+path, h)
}

// IPLookup geolocates addr.
func (c *Ninjas) IPLookup(ctx context.Context, addr string) (IPInfo, error) {
	res, err := c.get(ctx, "/iplookup?address="+url.QueryEscape(addr))
	if err != nil {
		return IPInfo{}, err
	}
	return IPInfo{
		IP:          stringOr(res.Get("address"), addr),
		CountryCode: stringOr(res.Get("country_code"), unknown),
		Country:     stringOr(res.Get("country"), unknown),
		RegionCode:  stringOr(res.Get("region_code"), unknown),
		Region:      stringOr(res.Get("region"), unknown),
		Timezone:    stringOr(res.Get("timezone"), unknown),
	}, nil
}

// Password generates a random password of length characters.
func (c *Ninjas) Password(ctx context.Context, length int) (string, error) {
	res, err := c.get(ctx, "/passwordgenerator?length="+strconv.Itoa(length))
	if err != nil {
		return "", err
	}
	return stringOr(res.Get("random_password"), "No password generated."), nil
}

// Hobby returns a random general hobby.
func (c *Ninjas) Hobby(ctx context.Context) (Hobby, error) {
	res, err := c.get(ctx, "/hobbies?category=general")
	if err != nil {
		return Hobby{}, err
	}
	return Hobby{
		Name:     stringOr(res.Get("hobby"), "No hobby found"),
		Category: stringOr(res.Get("category"), "No category found"),
		Link:     stringOr(res.Get("link"), "No link available"),
	}, nil
}

// Facts returns up to MaxFacts random facts. A response that is not a list
// yields no facts.
func (c *Ninjas) Facts(ctx context.Context) ([]string, error) {
	res, err := c.get(ctx, "/facts")
	if err != nil {
		return nil, err
	}
	out := []string{}
	if !res.IsArray() {
		return out, nil
	}
	for _, item := range res.Array() {
		if f := item.Get("fact").String(); f != "" {
			out = append(out, f)
		}
		if len(out) == MaxFacts {
			break
		}
	}
	return out, nil
}

package billing

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/jellydator/ttlcache/v2"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const subscriptionCacheTTL = time.Minute

// PolarClient looks up the current subscription for a user over the
// billing provider's HTTP API. Lookups are cached per user for a short
// TTL since every pin creation needs one.
type PolarClient struct {
	c       *http.Client
	baseURL string
	token   string

	// product id -> plan key ("pro"/"team"), from config
	products map[string]string

	cache *ttlcache.Cache
}

func NewPolarClient() *PolarClient {
	products := map[string]string{}
	if id := viper.GetString("polar.products.pro"); id != "" {
		products[id] = "pro"
	}
	if id := viper.GetString("polar.products.team"); id != "" {
		products[id] = "team"
	}

	cache := ttlcache.NewCache()
	cache.SetTTL(subscriptionCacheTTL)
	cache.SkipTTLExtensionOnHit(true)

	return &PolarClient{
		c:        &http.Client{Timeout: 10 * time.Second},
		baseURL:  viper.GetString("polar.base_url"),
		token:    viper.GetString("polar.access_token"),
		products: products,
		cache:    cache,
	}
}

type subscriptionItem struct {
	ProductID string `json:"product_id"`
	Status    string `json:"status"`
	Amount    int    `json:"amount"`
}

type subscriptionsResponse struct {
	Items []subscriptionItem `json:"items"`
}

func (p *PolarClient) GetSubscription(ctx context.Context, userID string) (*Subscription, error) {
	if v, err := p.cache.Get(userID); err == nil {
		sub, _ := v.(*Subscription)
		return sub, nil
	}

	u := fmt.Sprintf("%s/v1/subscriptions?external_customer_id=%s&active=true", p.baseURL, url.QueryEscape(userID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create subscription request, %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.token)

	resp, err := p.c.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach billing provider, %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("billing provider returned %d: %s", resp.StatusCode, body)
	}

	var out subscriptionsResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode subscription response, %w", err)
	}

	var sub *Subscription
	for _, item := range out.Items {
		key, ok := p.products[item.ProductID]
		if !ok {
			zap.L().Debug("Subscription for unmapped product", zap.String("product_id", item.ProductID))
			continue
		}

		sub = &Subscription{
			PlanKey: key,
			Status:  item.Status,
			Amount:  item.Amount,
		}
		break
	}

	// Cache "no subscription" results too, they're the common case
	p.cache.Set(userID, sub)

	return sub, nil
}

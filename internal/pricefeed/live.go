package pricefeed

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// tickerMessage is the wire format of the aggregator price stream.
type tickerMessage struct {
	Token string `json:"token"`
	Price string `json:"price"`
}

// LiveFeed streams prices from one websocket endpoint per exchange and
// serves the latest quote per (token, exchange) from a local cache. The URL
// template must contain a single %s which is replaced by the exchange name.
type LiveFeed struct {
	urlTemplate string
	exchanges   []string

	mu     sync.RWMutex
	quotes map[string]map[string]decimal.Decimal // token -> exchange -> price
}

// NewLive creates a live feed for the given exchanges.
func NewLive(urlTemplate string, exchanges []string) *LiveFeed {
	return &LiveFeed{
		urlTemplate: urlTemplate,
		exchanges:   append([]string{}, exchanges...),
		quotes:      make(map[string]map[string]decimal.Decimal),
	}
}

// Start launches one streaming goroutine per exchange. Streams reconnect
// with exponential backoff until ctx is cancelled.
func (f *LiveFeed) Start(ctx context.Context) {
	for _, exchange := range f.exchanges {
		go f.stream(ctx, exchange)
	}
}

// Prices returns the cached quotes for a token. A token with no quotes yet
// fails alone; other tokens remain scannable.
func (f *LiveFeed) Prices(_ context.Context, token string) (map[string]decimal.Decimal, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	cached, ok := f.quotes[token]
	if !ok || len(cached) == 0 {
		return nil, fmt.Errorf("no live quotes for token %s", token)
	}

	prices := make(map[string]decimal.Decimal, len(cached))
	for exchange, price := range cached {
		prices[exchange] = price
	}
	return prices, nil
}

func (f *LiveFeed) stream(ctx context.Context, exchange string) {
	wsURL := fmt.Sprintf(f.urlTemplate, exchange)
	backoff := time.Second

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("exchange", exchange).Msg("Price stream shutting down")
			return
		default:
		}

		log.Info().Str("exchange", exchange).Str("url", wsURL).Msg("Connecting to price stream")
		conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
		if err != nil {
			log.Error().Err(err).Str("exchange", exchange).Msg("Price stream connection failed")
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
				backoff *= 2
				if backoff > 16*time.Second {
					backoff = 16 * time.Second
				}
			}
			continue
		}

		// Reset backoff on successful connection
		backoff = time.Second
		f.readLoop(ctx, exchange, conn)
		conn.Close()
	}
}

func (f *LiveFeed) readLoop(ctx context.Context, exchange string, conn *websocket.Conn) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		_, message, err := conn.ReadMessage()
		if err != nil {
			log.Error().Err(err).Str("exchange", exchange).Msg("Failed to read price message")
			return
		}

		var tick tickerMessage
		if err := json.Unmarshal(message, &tick); err != nil {
			log.Warn().Err(err).Str("exchange", exchange).Msg("Failed to parse price message")
			continue
		}

		price, err := decimal.NewFromString(tick.Price)
		if err != nil || price.Sign() <= 0 {
			log.Warn().Str("exchange", exchange).Str("price", tick.Price).Msg("Discarding bad quote")
			continue
		}

		f.mu.Lock()
		if f.quotes[tick.Token] == nil {
			f.quotes[tick.Token] = make(map[string]decimal.Decimal)
		}
		f.quotes[tick.Token][exchange] = price
		f.mu.Unlock()
	}
}

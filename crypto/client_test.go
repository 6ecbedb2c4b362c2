package crypto

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_QuoteResolvesAliasAndCaches(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		assert.Equal(t, "bitcoin", r.URL.Query().Get("ids"))
		w.Write([]byte(`{"bitcoin": {"usd": 64250.5, "usd_24h_change": -2.31}}`))
	}))
	defer srv.Close()

	c, err := New(srv.URL, "")
	require.NoError(t, err)

	q, err := c.Quote(context.Background(), "BTC")
	require.NoError(t, err)
	assert.Equal(t, "bitcoin", q.Coin)
	assert.Equal(t, 64250.5, q.PriceUSD)
	assert.Equal(t, -2.31, q.Change24h)

	_, err = c.Quote(context.Background(), "bitcoin")
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestClient_QuoteCacheExpires(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Write([]byte(`{"bitcoin": {"usd": 1.0, "usd_24h_change": 0}}`))
	}))
	defer srv.Close()

	c, err := New(srv.URL, "")
	require.NoError(t, err)
	current := time.Now()
	c.now = func() time.Time { return current }

	_, err = c.Quote(context.Background(), "btc")
	require.NoError(t, err)

	current = current.Add(2 * time.Minute)
	_, err = c.Quote(context.Background(), "btc")
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
}

func TestClient_QuoteUnknownCoin(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c, err := New(srv.URL, "")
	require.NoError(t, err)

	_, err = c.Quote(context.Background(), "notacoin")
	assert.ErrorIs(t, err, ErrUnknownCoin)
}

func TestClient_Gas(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "gastracker", r.URL.Query().Get("module"))
		w.Write([]byte(`{"status": "1", "result": {"SafeGasPrice": "12", "ProposeGasPrice": "14.5", "FastGasPrice": "20"}}`))
	}))
	defer srv.Close()

	c, err := New("http://unused", "key")
	require.NoError(t, err)
	c.gasBase = srv.URL

	gas, err := c.Gas(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 12.0, gas.Low)
	assert.Equal(t, 14.5, gas.Average)
	assert.Equal(t, 20.0, gas.High)
}

func TestClient_Transaction(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "proxy", r.URL.Query().Get("module"))
		assert.Equal(t, "eth_getTransactionByHash", r.URL.Query().Get("action"))
		assert.Equal(t, "0xabc", r.URL.Query().Get("txhash"))
		w.Write([]byte(`{"result": {
			"hash": "0xabc",
			"from": "0x1111",
			"to": "0x2222",
			"value": "0xde0b6b3a7640000",
			"gasPrice": "0x3b9aca00",
			"blockNumber": "0x10"
		}}`))
	}))
	defer srv.Close()

	c, err := New("http://unused", "key")
	require.NoError(t, err)
	c.gasBase = srv.URL

	tx, err := c.Transaction(context.Background(), "0xabc")
	require.NoError(t, err)
	assert.Equal(t, "0x1111", tx.From)
	assert.Equal(t, "0x2222", tx.To)
	assert.Equal(t, 1.0, tx.ValueETH)
	assert.Equal(t, 1.0, tx.GasGwei)
	assert.False(t, tx.Pending)
}

func TestClient_TransactionNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"result": null}`))
	}))
	defer srv.Close()

	c, err := New("http://unused", "key")
	require.NoError(t, err)
	c.gasBase = srv.URL

	_, err = c.Transaction(context.Background(), "0xmissing")
	assert.ErrorIs(t, err, ErrTxNotFound)
}

func TestClient_TransactionPending(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"result": {
			"hash": "0xabc", "from": "0x1", "to": "0x2",
			"value": "0x0", "gasPrice": "0x0", "blockNumber": ""
		}}`))
	}))
	defer srv.Close()

	c, err := New("http://unused", "key")
	require.NoError(t, err)
	c.gasBase = srv.URL

	tx, err := c.Transaction(context.Background(), "0xabc")
	require.NoError(t, err)
	assert.True(t, tx.Pending)
}

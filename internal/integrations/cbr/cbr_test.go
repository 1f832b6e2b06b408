package cbr

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const keyRateResponse = `<?xml version="1.0" encoding="utf-8"?>
<soap:Envelope xmlns:soap="http://www.w3.org/2003/05/soap-envelope">
  <soap:Body>
    <KeyRateResponse xmlns="http://web.cbr.ru/">
      <KeyRateResult>
        <diffgr:diffgram xmlns:msdata="urn:schemas-microsoft-com:xml-msdata" xmlns:diffgr="urn:schemas-microsoft-com:xml-diffgram-v1">
          <KeyRate xmlns="">
            <KR diffgr:id="KR1" msdata:rowOrder="0">
              <DT>2024-06-14T00:00:00+03:00</DT>
              <Rate>16.00</Rate>
            </KR>
            <KR diffgr:id="KR2" msdata:rowOrder="1">
              <DT>2024-06-13T00:00:00+03:00</DT>
              <Rate>15.50</Rate>
            </KR>
          </KeyRate>
        </diffgr:diffgram>
      </KeyRateResult>
    </KeyRateResponse>
  </soap:Body>
</soap:Envelope>`

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func TestKeyRate(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "http://web.cbr.ru/KeyRate", r.Header.Get("SOAPAction"))
		body, _ := io.ReadAll(r.Body)
		assert.Contains(t, string(body), "<fromDate>2024-05-16</fromDate>")
		assert.Contains(t, string(body), "<ToDate>2024-06-15</ToDate>")
		_, _ = w.Write([]byte(keyRateResponse))
	}))
	defer srv.Close()

	now := time.Date(2024, 6, 15, 9, 0, 0, 0, time.UTC)
	c := NewCBRClient(srv.URL, testLogger())
	c.now = func() time.Time { return now }

	rate, err := c.KeyRate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 16.0, rate)

	// served from memory
	now = now.Add(time.Hour)
	rate, err = c.KeyRate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 16.0, rate)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestKeyRateErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{"bad status", http.StatusServiceUnavailable, "", "unexpected status code: 503"},
		{"not xml", http.StatusOK, "<<<", "failed to parse XML"},
		{"no rows", http.StatusOK, `<Envelope><diffgram><KeyRate/></diffgram></Envelope>`, "no key rate data"},
		{"bad rate", http.StatusOK, `<Envelope><diffgram><KeyRate><KR><Rate>n/a</Rate></KR></KeyRate></diffgram></Envelope>`, "failed to parse rate"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewCBRClient(srv.URL, testLogger()).KeyRate(context.Background())
			require.Error(t, err)
			assert.True(t, strings.Contains(err.Error(), tt.wantErr), err.Error())
		})
	}
}

// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-sovereign.
//
// go-sovereign is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordOperation(t *testing.T) {
	Enable()

	before := testutil.ToFloat64(OperationsTotal.WithLabelValues(OpDerive, StatusSuccess))
	RecordOperation(OpDerive, StatusSuccess, 0.002)
	after := testutil.ToFloat64(OperationsTotal.WithLabelValues(OpDerive, StatusSuccess))

	assert.Equal(t, before+1, after)
}

func TestRecordDisabled(t *testing.T) {
	Disable()
	defer Enable()

	before := testutil.ToFloat64(OperationsTotal.WithLabelValues(OpRevoke, StatusSuccess))
	RecordOperation(OpRevoke, StatusSuccess, 0.001)
	after := testutil.ToFloat64(OperationsTotal.WithLabelValues(OpRevoke, StatusSuccess))

	assert.Equal(t, before, after)
}

func TestRecordRevocationDenial(t *testing.T) {
	Enable()

	before := testutil.ToFloat64(RevocationDenialsTotal.WithLabelValues("global"))
	RecordRevocationDenial("global")
	after := testutil.ToFloat64(RevocationDenialsTotal.WithLabelValues("global"))

	assert.Equal(t, before+1, after)
}

func TestRecordAuditDrop(t *testing.T) {
	Enable()

	before := testutil.ToFloat64(AuditEventsDropped)
	RecordAuditDrop()
	after := testutil.ToFloat64(AuditEventsDropped)

	assert.Equal(t, before+1, after)
}

func TestHTTPMiddleware(t *testing.T) {
	Enable()

	handler := HTTPMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	before := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("POST", "201"))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/enroll/begin", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	after := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("POST", "201"))
	assert.Equal(t, before+1, after)
}

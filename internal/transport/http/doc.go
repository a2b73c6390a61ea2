// Package http serves the read-only query API over the corrected index
// and the station catalog.
//
// Handlers are thin: they parse query parameters, call the index or the
// catalog and render JSON with go-chi/render. Every failure goes through
// errors.ErrorHandler and reaches the client as RFC 7807 problem details:
//
//	{
//	    "type": "/errors/validation",
//	    "title": "Bad Request",
//	    "status": 400,
//	    "detail": "year is required",
//	    "instance": "/api/index/sites",
//	    "error_code": "VALIDATION_FAILED",
//	    "details": {"field": "year", "message": "is required"}
//	}
//
// # Routes
//
//	GET /api/health
//	GET /api/index/ions
//	GET /api/index/metals
//	GET /api/index/sites?year=&analyte=&analyte_type=
//	GET /api/index/years?site_id=&analyte=&analyte_type=
//	GET /api/index/metadata?analyte=&instrument=&analyte_type=&site_id=
//	GET /api/index/combinations?instrument=&analyte_type=&site_id=
//	GET /api/stations
//	GET /api/stations/{id}
//	GET /metrics
package http

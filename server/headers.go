package server

// HeaderXResponseTime reports request processing duration. Set by the timing
// middleware on all responses. Other header names come from echo.
const HeaderXResponseTime = "X-Response-Time"

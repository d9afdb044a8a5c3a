// Package mockserver serves a local stand-in for the prediction backend.
//
// It reproduces the request and response contract of /predict, /health and
// /model-info, simulates a cold start by answering 503 until a warm-up window
// has passed, and scores records with a fixed logistic formula so results are
// deterministic. It exists to exercise the client's retry and progress
// behaviour without the real model service.
package mockserver

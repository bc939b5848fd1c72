// Package rwnn implements random weight neural networks: feed-forward
// networks whose hidden weights are sampled once from a fixed distribution
// and whose output layer is estimated in closed form by regularized least
// squares. It provides single networks (plain, autoencoder-pretrained,
// deep), the bagging/boosting/stacking/ensemble-deep drivers, prediction,
// and JSON persistence.
//
// The companion package reduce prunes fitted networks; everything it needs
// (forward evaluation, output estimation, the structural invariants) is
// defined here.
package rwnn

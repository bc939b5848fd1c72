package rwnn

import (
	"encoding/json"
	"os"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// matrixData is the serializable form of a dense matrix.
type matrixData struct {
	Rows int       `json:"rows"`
	Cols int       `json:"cols"`
	Data []float64 `json:"data"`
}

func encodeMatrix(m *mat.Dense) *matrixData {
	if m == nil {
		return nil
	}
	r, c := m.Dims()
	out := &matrixData{Rows: r, Cols: c, Data: make([]float64, 0, r*c)}
	for i := 0; i < r; i++ {
		out.Data = append(out.Data, m.RawRowView(i)...)
	}
	return out
}

func (md *matrixData) decode() (*mat.Dense, error) {
	if md == nil {
		return nil, nil
	}
	if md.Rows <= 0 || md.Cols <= 0 || md.Rows*md.Cols != len(md.Data) {
		return nil, errors.Errorf("matrix data holds %d values for a %dx%d shape", len(md.Data), md.Rows, md.Cols)
	}
	return mat.NewDense(md.Rows, md.Cols, md.Data), nil
}

type networkData struct {
	Widths        []int         `json:"widths"`
	Weights       []*matrixData `json:"weights"`
	Biases        []bool        `json:"biases"`
	Activations   []string      `json:"activations"`
	OutputWeights *matrixData   `json:"output_weights"`
	OutputBias    bool          `json:"output_bias"`
	CombineInput  bool          `json:"combine_input"`
	CombineHidden bool          `json:"combine_hidden"`
	InputKeep     []int         `json:"input_keep,omitempty"`
	Norm          string        `json:"norm"`
	Penalty       float64       `json:"penalty"`
	Sigma         float64       `json:"sigma"`
}

// MarshalJSON serializes the network structure and weights. The training
// data reference is not part of the representation.
func (n *Network) MarshalJSON() ([]byte, error) {
	nd := networkData{
		Widths:        n.Widths,
		Weights:       make([]*matrixData, len(n.Weights)),
		Biases:        n.Biases,
		Activations:   n.Activations,
		OutputWeights: encodeMatrix(n.OutputWeights),
		OutputBias:    n.OutputBias,
		CombineInput:  n.CombineInput,
		CombineHidden: n.CombineHidden,
		InputKeep:     n.InputKeep,
		Norm:          n.Norm,
		Penalty:       n.Penalty,
		Sigma:         n.Sigma,
	}
	for i, w := range n.Weights {
		nd.Weights[i] = encodeMatrix(w)
	}
	return json.Marshal(nd)
}

func (n *Network) UnmarshalJSON(data []byte) error {
	var nd networkData
	if err := json.Unmarshal(data, &nd); err != nil {
		return errors.Wrap(err, "unmarshal network")
	}
	out := Network{
		Widths:        nd.Widths,
		Weights:       make([]*mat.Dense, len(nd.Weights)),
		Biases:        nd.Biases,
		Activations:   nd.Activations,
		OutputBias:    nd.OutputBias,
		CombineInput:  nd.CombineInput,
		CombineHidden: nd.CombineHidden,
		InputKeep:     nd.InputKeep,
		Norm:          nd.Norm,
		Penalty:       nd.Penalty,
		Sigma:         nd.Sigma,
	}
	var err error
	for i, w := range nd.Weights {
		if out.Weights[i], err = w.decode(); err != nil {
			return errors.Wrapf(err, "layer %d", i)
		}
	}
	if out.OutputWeights, err = nd.OutputWeights.decode(); err != nil {
		return errors.Wrap(err, "output layer")
	}
	if err := out.Validate(); err != nil {
		return errors.Wrap(err, "unmarshal network")
	}
	*n = out
	return nil
}

// SaveNetwork writes the network to path as indented JSON.
func SaveNetwork(path string, n *Network) error {
	data, err := json.MarshalIndent(n, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshal network")
	}
	return os.WriteFile(path, data, 0644)
}

// LoadNetwork reads a network written by SaveNetwork.
func LoadNetwork(path string) (*Network, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read network file")
	}
	var n Network
	if err := json.Unmarshal(data, &n); err != nil {
		return nil, err
	}
	return &n, nil
}

// SaveEnsemble writes the ensemble and all members to path as indented
// JSON.
func SaveEnsemble(path string, e *Ensemble) error {
	data, err := json.MarshalIndent(e, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshal ensemble")
	}
	return os.WriteFile(path, data, 0644)
}

// LoadEnsemble reads an ensemble written by SaveEnsemble.
func LoadEnsemble(path string) (*Ensemble, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read ensemble file")
	}
	var e Ensemble
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, errors.Wrap(err, "unmarshal ensemble")
	}
	if err := e.Validate(); err != nil {
		return nil, errors.Wrap(err, "unmarshal ensemble")
	}
	return &e, nil
}

package layers

// Footprints in world units.
const (
	nodeSize     = 64
	poolingWidth = 112
	functionSize = 40
)

var inputTypes = []string{"IMAGE", "TEXT", "TABULAR", "AUDIO", "VIDEO"}

// Default returns the built-in catalog.
func Default() *Registry {
	return NewRegistry(builtin()...)
}

func builtin() []Definition {
	defs := []Definition{
		{
			Name: "ConvolutionalLayer", Category: CategoryLayer, Width: nodeSize, Height: nodeSize,
			Params: []Param{
				{Name: "conv_type", Kind: KindEnum, Default: "CONV2D", Enum: []string{
					"CONV1D", "CONV2D", "CONV3D",
					"CONVTRANSPOSE1D", "CONVTRANSPOSE2D", "CONVTRANSPOSE3D",
				}},
				{Name: "in_channels", Kind: KindNumber, Default: 32},
				{Name: "out_channels", Kind: KindNumber, Default: 32},
				{Name: "kernel_size", Kind: KindNumber, Default: 3},
				{Name: "stride", Kind: KindNumber, Default: 1},
				{Name: "padding", Kind: KindNumber, Default: 1},
				{Name: "dilation", Kind: KindNumber, Default: 1},
				{Name: "groups", Kind: KindNumber, Default: 1},
				{Name: "bias", Kind: KindBool, Default: true},
				{Name: "padding_mode", Kind: KindEnum, Default: "ZEROS", Enum: []string{"ZEROS", "REFLECT", "REPLICATE", "CIRCULAR"}},
			},
		},
		{
			Name: "PoolingLayer", Category: CategoryLayer, Width: poolingWidth, Height: nodeSize,
			Params: []Param{
				{Name: "pooling_type", Kind: KindEnum, Default: "MAX", Enum: []string{"MAX", "AVG"}},
				{Name: "pool_dimension", Kind: KindEnum, Default: "POOL2D", Enum: []string{"POOL1D", "POOL2D", "POOL3D"}},
				{Name: "kernel_size", Kind: KindNumber, Default: 2},
				{Name: "stride", Kind: KindNumber, Default: 2},
				{Name: "padding", Kind: KindNumber, Default: 0},
			},
		},
		{
			Name: "DenseLayer", Category: CategoryLayer, Width: nodeSize, Height: nodeSize,
			Params: []Param{
				{Name: "in_features", Kind: KindNumber, Default: 10},
				{Name: "out_features", Kind: KindNumber, Default: 50},
				{Name: "bias", Kind: KindBool, Default: true},
			},
		},
		{Name: "FlatteningLayer", Category: CategoryLayer, Width: nodeSize, Height: nodeSize},
		{
			Name: "DropoutLayer", Category: CategoryLayer, Width: nodeSize, Height: nodeSize,
			Params: []Param{
				{Name: "probability", Kind: KindNumber, Default: 0.5},
				{Name: "inplace", Kind: KindBool, Default: false},
			},
		},
		{
			Name: "EmbeddingLayer", Category: CategoryLayer, Width: nodeSize, Height: nodeSize,
			Params: []Param{
				{Name: "num_embeddings", Kind: KindNumber, Default: 1000},
				{Name: "embedding_dim", Kind: KindNumber, Default: 100},
				{Name: "max_norm", Kind: KindNumber},
				{Name: "norm_type", Kind: KindNumber, Default: 2},
				{Name: "scale_grad_by_freq", Kind: KindBool, Default: false},
				{Name: "sparse", Kind: KindBool, Default: false},
			},
		},
		{
			Name: "AttentionLayer", Category: CategoryLayer, Width: nodeSize, Height: nodeSize,
			Params: []Param{
				{Name: "embed_dim", Kind: KindNumber, Default: 512},
				{Name: "num_heads", Kind: KindNumber, Default: 8},
				{Name: "dropout", Kind: KindNumber, Default: 0.0},
				{Name: "bias", Kind: KindBool, Default: true},
				{Name: "add_bias_kv", Kind: KindBool, Default: false},
				{Name: "add_zero_attn", Kind: KindBool, Default: false},
				{Name: "batch_first", Kind: KindBool, Default: false},
			},
		},
		{
			Name: "NormalizationLayer", Category: CategoryLayer, Width: nodeSize, Height: nodeSize,
			Params: []Param{
				{Name: "normalization_type", Kind: KindEnum, Default: "BATCHNORM2D", Enum: []string{
					"BATCHNORM1D", "BATCHNORM2D", "BATCHNORM3D", "LAYERNORM",
				}},
				{Name: "num_features", Kind: KindNumber, Default: 64},
				{Name: "eps", Kind: KindNumber, Default: 1e-5},
			},
		},
		{
			Name: "RecurrentLayer", Category: CategoryLayer, Width: nodeSize, Height: nodeSize,
			Params: []Param{
				{Name: "recurrent_type", Kind: KindEnum, Default: "LSTM", Enum: []string{"RNN", "LSTM", "GRU"}},
				{Name: "input_size", Kind: KindNumber, Default: 128},
				{Name: "hidden_size", Kind: KindNumber, Default: 128},
				{Name: "num_layers", Kind: KindNumber, Default: 1},
				{Name: "bias", Kind: KindBool, Default: true},
				{Name: "batch_first", Kind: KindBool, Default: false},
				{Name: "dropout", Kind: KindNumber, Default: 0.0},
				{Name: "bidirectional", Kind: KindBool, Default: false},
			},
		},
		{Name: "OutputLayer", Category: CategoryOutput, Width: nodeSize, Height: nodeSize},
		{Name: "ReLUFunction", Category: CategoryFunction, Width: functionSize, Height: functionSize},
		{Name: "TanhFunction", Category: CategoryFunction, Width: functionSize, Height: functionSize},
		{Name: "SoftMaxFunction", Category: CategoryFunction, Width: functionSize, Height: functionSize,
			Params: []Param{{Name: "dim", Kind: KindNumber, Default: 1}},
		},
		{Name: "LeakyReLUFunction", Category: CategoryFunction, Width: functionSize, Height: functionSize,
			Params: []Param{{Name: "negative_slope", Kind: KindNumber, Default: 0.01}},
		},
	}

	for _, in := range inputTypes {
		defs = append(defs, Definition{
			Name:     inputName(in),
			Category: CategoryInput,
			Width:    nodeSize,
			Height:   nodeSize,
			Params: []Param{
				{Name: "input_type", Kind: KindEnum, Default: in, Enum: inputTypes},
				{Name: "shape", Kind: KindString, Default: defaultShape(in)},
			},
		})
	}
	return defs
}

func inputName(kind string) string {
	return kind[:1] + lower(kind[1:]) + "InputLayer"
}

func lower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}

func defaultShape(kind string) string {
	switch kind {
	case "IMAGE":
		return "3,224,224"
	case "TEXT":
		return "512"
	case "AUDIO":
		return "1,16000"
	case "VIDEO":
		return "16,3,112,112"
	}
	return "10"
}

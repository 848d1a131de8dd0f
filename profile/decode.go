/*
 * MIT License
 *
 * Copyright (c) 2024 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

package profile

import (
	libdur "github.com/nabbar/netcore/duration"
	libmde "github.com/nabbar/netcore/netmode"
	libsiz "github.com/nabbar/netcore/size"

	libmap "github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// decoderOptions composes the Size and Duration decode hooks so a caller
// never has to remember both; mirrors how component
// packages assemble their own DecoderConfigOption lists before calling
// UnmarshalKey.
func decoderOptions() viper.DecoderConfigOption {
	return viper.DecoderConfigOption(func(c *libmap.DecoderConfig) {
		c.DecodeHook = libmap.ComposeDecodeHookFunc(
			libsiz.ViperDecoderHook(),
			libdur.ViperDecoderHook(),
		)
	})
}

// Decode unmarshals the given viper key into a Config, starting from
// Default() so any option the input omits keeps its default value, and
// validates the result before returning it.
func Decode(v *viper.Viper, key string) (Config, error) {
	cfg := Default()

	if v == nil {
		return cfg, libmde.New(libmde.KindNotInitialized, nil)
	}

	if err := v.UnmarshalKey(key, &cfg, decoderOptions()); err != nil {
		return cfg, libmde.New(libmde.KindInvalidArgument, err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}

	return cfg, nil
}

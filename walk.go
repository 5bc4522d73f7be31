// Copyright 2024 Ross Light
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//		 https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0

package marknote

// A Cursor describes a [Token] encountered during [Walk].
type Cursor struct {
	tok    *Token
	parent *Token
	index  int
}

// Token returns the current [Token].
func (c *Cursor) Token() *Token {
	return c.tok
}

// Parent returns the token whose Children contain the current token
// or nil if the current token is in the top-level stream.
func (c *Cursor) Parent() *Token {
	return c.parent
}

// Index returns the position of the current token
// in its parent's Children (or the top-level stream).
func (c *Cursor) Index() int {
	return c.index
}

// WalkOptions is the set of parameters to [Walk].
type WalkOptions struct {
	// If Pre is not nil, it is called for each token before the token's children are traversed (pre-order).
	// If Pre returns false, no children are traversed, and Post is not called for that token.
	Pre func(c *Cursor) bool
	// If Post is not nil, it is called for each token after the token's children are traversed (post-order).
	// If Post returns false, traversal is terminated and Walk returns immediately.
	Post func(c *Cursor) bool
}

// Walk traverses a token stream in order,
// descending into the Children of each token,
// and calling [WalkOptions.Pre] and [WalkOptions.Post].
func Walk(tokens []*Token, opts *WalkOptions) {
	type walkFrame struct {
		tok    *Token
		parent *Token
		index  int
		post   bool
	}

	stack := make([]walkFrame, 0, len(tokens))
	for i := len(tokens) - 1; i >= 0; i-- {
		stack = append(stack, walkFrame{tok: tokens[i], index: i})
	}
	cursor := new(Cursor)
	for len(stack) > 0 {
		curr := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		cursor.tok = curr.tok
		cursor.parent = curr.parent
		cursor.index = curr.index
		if curr.post {
			if opts.Post != nil && !opts.Post(cursor) {
				break
			}
			continue
		}

		if opts.Pre != nil && !opts.Pre(cursor) {
			continue
		}
		curr.post = true
		stack = append(stack, curr)
		for i := len(curr.tok.Children) - 1; i >= 0; i-- {
			stack = append(stack, walkFrame{
				tok:    curr.tok.Children[i],
				parent: curr.tok,
				index:  i,
			})
		}
	}
}

// CountTokens returns the number of tokens of the given type
// in the stream, including inline children.
func CountTokens(tokens []*Token, typ string) int {
	n := 0
	Walk(tokens, &WalkOptions{
		Pre: func(c *Cursor) bool {
			if c.Token().Type == typ {
				n++
			}
			return true
		},
	})
	return n
}

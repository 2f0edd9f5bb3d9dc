package runtime

// StackObserver is notified synchronously on every stack mutation.
// Observers must not mutate the stack.
type StackObserver func(op StackOp, b *Block, depth int)

// StackOp names a stack mutation for observers.
type StackOp string

const (
	// StackPushed means the block was just pushed and is now current.
	StackPushed StackOp = "pushed"
	// StackPopped means the block was just removed from the top.
	StackPopped StackOp = "popped"
)

// Stack is the LIFO list of live blocks. The top block is the one currently
// executing; ancestors below it wait for their child to complete.
//
// The stack is the one shared mutable structure every action touches. Turns
// execute one at a time on a single logical thread, so mutation is implicitly
// serialized - but an action must assume the stack may have changed under a
// reference captured before its turn began.
type Stack struct {
	blocks    []*Block
	observers []StackObserver
}

// NewStack creates an empty stack.
func NewStack() *Stack {
	return &Stack{
		blocks: make([]*Block, 0, 8),
	}
}

// Push puts b on top of the stack. O(1). Observers fire synchronously.
func (s *Stack) Push(b *Block) {
	s.blocks = append(s.blocks, b)
	for _, obs := range s.observers {
		obs(StackPushed, b, len(s.blocks))
	}
}

// Pop removes and returns the top block. O(1).
// Popping an empty stack is a no-op returning nil.
func (s *Stack) Pop() *Block {
	if len(s.blocks) == 0 {
		return nil
	}

	top := s.blocks[len(s.blocks)-1]

	// Nil out the slot so the popped block's behaviors and memory refs are
	// collectable while the backing array lives on.
	s.blocks[len(s.blocks)-1] = nil
	s.blocks = s.blocks[:len(s.blocks)-1]

	for _, obs := range s.observers {
		obs(StackPopped, top, len(s.blocks))
	}
	return top
}

// Current returns the top block, or nil if the stack is empty.
func (s *Stack) Current() *Block {
	if len(s.blocks) == 0 {
		return nil
	}
	return s.blocks[len(s.blocks)-1]
}

// Parent returns the block directly under the top, or nil.
func (s *Stack) Parent() *Block {
	if len(s.blocks) < 2 {
		return nil
	}
	return s.blocks[len(s.blocks)-2]
}

// Depth returns the number of live blocks.
func (s *Stack) Depth() int {
	return len(s.blocks)
}

// Keys returns the keys of every live block, bottom to top.
func (s *Stack) Keys() []BlockKey {
	keys := make([]BlockKey, len(s.blocks))
	for i, b := range s.blocks {
		keys[i] = b.Key
	}
	return keys
}

// Contains reports whether a block with the given key is live.
func (s *Stack) Contains(key BlockKey) bool {
	for _, b := range s.blocks {
		if b.Key == key {
			return true
		}
	}
	return false
}

// Blocks returns the live blocks bottom to top. The slice is a copy; the
// blocks are not.
func (s *Stack) Blocks() []*Block {
	return append([]*Block(nil), s.blocks...)
}

// Observe registers a synchronous mutation observer.
func (s *Stack) Observe(obs StackObserver) {
	s.observers = append(s.observers, obs)
}
